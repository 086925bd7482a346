package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/internal/conversation/domain"
	"igcommerce_backend/platform/apperr"
)

const (
	conversationNotFoundMessage = "conversation not found"
	handoverNotFoundMessage     = "handover request not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new conversation repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Ensure upserts the conversation row. Concurrent first messages for the same
// pair race on the primary key; the loser's insert becomes a no-op update of
// last_customer_at and both callers read back the same row. A resolved
// conversation reopens as ai_active, with a version bump so in-flight CAS
// writers lose.
func (r *Repo) Ensure(ctx context.Context, conv Conversation) (Conversation, error) {
	query := `
		INSERT INTO conversations (id, merchant_id, customer_id, page_id, state, version, language, last_customer_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (id) DO UPDATE
			SET last_customer_at = EXCLUDED.last_customer_at,
			    language = EXCLUDED.language,
			    state = CASE WHEN conversations.state = $8 THEN $9 ELSE conversations.state END,
			    version = conversations.version + CASE WHEN conversations.state = $8 THEN 1 ELSE 0 END,
			    updated_at = now()
		RETURNING id, merchant_id, customer_id, page_id, state, version, language, last_customer_at, created_at, updated_at`

	state := conv.State
	if state == "" {
		state = domain.StateAIActive
	}
	at := conv.LastCustomerAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var out Conversation
	err := r.pool.QueryRow(ctx, query, conv.ID, conv.MerchantID, conv.CustomerID, conv.PageID, state, conv.Language, at,
		domain.StateResolved, domain.StateAIActive).Scan(
		&out.ID, &out.MerchantID, &out.CustomerID, &out.PageID, &out.State, &out.Version,
		&out.Language, &out.LastCustomerAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return Conversation{}, apperr.Wrap(apperr.KindInternal, "failed to ensure conversation", err)
	}
	return out, nil
}

// Get retrieves a conversation by its pair key.
func (r *Repo) Get(ctx context.Context, id string) (Conversation, error) {
	query := `
		SELECT id, merchant_id, customer_id, page_id, state, version, language, last_customer_at, created_at, updated_at
		FROM conversations
		WHERE id = $1`

	var out Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.MerchantID, &out.CustomerID, &out.PageID, &out.State, &out.Version,
		&out.Language, &out.LastCustomerAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, apperr.NotFound(conversationNotFoundMessage)
		}
		return Conversation{}, apperr.Wrap(apperr.KindInternal, "failed to get conversation", err)
	}
	return out, nil
}

// UpdateState performs the compare-and-swap on the version column.
func (r *Repo) UpdateState(ctx context.Context, id, newState string, version int64) (bool, error) {
	query := `
		UPDATE conversations
		SET state = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3`

	tag, err := r.pool.Exec(ctx, query, id, newState, version)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to update conversation state", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TouchCustomerActivity stamps the time of the latest inbound customer message.
func (r *Repo) TouchCustomerActivity(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE conversations SET last_customer_at = $2, updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id, at); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to touch conversation", err)
	}
	return nil
}

// ListLive lists conversations currently awaiting or owned by a human.
// Closed conversations are not live.
func (r *Repo) ListLive(ctx context.Context, merchantID uuid.UUID) ([]Conversation, error) {
	query := `
		SELECT id, merchant_id, customer_id, page_id, state, version, language, last_customer_at, created_at, updated_at
		FROM conversations
		WHERE merchant_id = $1 AND state NOT IN ($2, $3)
		ORDER BY last_customer_at DESC`

	rows, err := r.pool.Query(ctx, query, merchantID, domain.StateAIActive, domain.StateResolved)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list live conversations", err)
	}
	defer rows.Close()
	return scanConversations(rows)
}

func scanConversations(rows pgx.Rows) ([]Conversation, error) {
	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(
			&c.ID, &c.MerchantID, &c.CustomerID, &c.PageID, &c.State, &c.Version,
			&c.Language, &c.LastCustomerAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan conversation", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddMessage stores one conversation turn.
func (r *Repo) AddMessage(ctx context.Context, msg Message) error {
	query := `
		INSERT INTO conversation_messages
			(id, conversation_id, sender, text, platform_msg_id, kind, audio_url, sentiment_score, intent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.pool.Exec(ctx, query, id, msg.ConversationID, msg.Sender, msg.Text,
		msg.PlatformMsgID, msg.Kind, msg.AudioURL, msg.SentimentScore, msg.Intent)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store message", err)
	}
	return nil
}

// RecentMessages returns the newest messages of a conversation, oldest first.
func (r *Repo) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, sender, text, platform_msg_id, kind, audio_url, sentiment_score, intent, created_at
		FROM (
			SELECT id, conversation_id, sender, text, platform_msg_id, kind, audio_url, sentiment_score, intent, created_at
			FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list messages", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Text, &m.PlatformMsgID,
			&m.Kind, &m.AudioURL, &m.SentimentScore, &m.Intent, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan message", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create stores a new handover request.
func (r *Repo) Create(ctx context.Context, hr HandoverRequest) error {
	query := `
		INSERT INTO handover_requests
			(id, conversation_id, merchant_id, reason, priority, status, trigger_message, sentiment_score, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query, hr.ID, hr.ConversationID, hr.MerchantID, hr.Reason,
		hr.Priority, hr.Status, hr.TriggerMessage, hr.SentimentScore, hr.RequestedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create handover request", err)
	}
	return nil
}

// GetByID retrieves a handover request.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (HandoverRequest, error) {
	query := selectHandover + ` WHERE id = $1`

	var hr HandoverRequest
	err := r.pool.QueryRow(ctx, query, id).Scan(handoverFields(&hr)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return HandoverRequest{}, apperr.NotFound(handoverNotFoundMessage)
		}
		return HandoverRequest{}, apperr.Wrap(apperr.KindInternal, "failed to get handover request", err)
	}
	return hr, nil
}

// HasOpen reports whether the conversation already has an unresolved request.
func (r *Repo) HasOpen(ctx context.Context, conversationID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM handover_requests
			WHERE conversation_id = $1 AND status IN ($2, $3)
		)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, conversationID, domain.HandoverPending, domain.HandoverAccepted).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to check open handover", err)
	}
	return exists, nil
}

// Accept claims a pending request for an agent. The status guard in the WHERE
// clause makes concurrent accepts race safely: exactly one wins.
func (r *Repo) Accept(ctx context.Context, id uuid.UUID, agentID, agentName string, at time.Time) (bool, error) {
	query := `
		UPDATE handover_requests
		SET status = $2, agent_id = $3, agent_name = $4, accepted_at = $5
		WHERE id = $1 AND status = $6`

	tag, err := r.pool.Exec(ctx, query, id, domain.HandoverAccepted, agentID, agentName, at, domain.HandoverPending)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to accept handover request", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Resolve closes an accepted request.
func (r *Repo) Resolve(ctx context.Context, id uuid.UUID, resolution string, at time.Time) (bool, error) {
	query := `
		UPDATE handover_requests
		SET status = $2, resolution = NULLIF($3, ''), resolved_at = $4
		WHERE id = $1 AND status = $5`

	tag, err := r.pool.Exec(ctx, query, id, domain.HandoverResolved, resolution, at, domain.HandoverAccepted)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to resolve handover request", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpirePending times out stale pending requests and returns them.
func (r *Repo) ExpirePending(ctx context.Context, cutoff time.Time) ([]HandoverRequest, error) {
	query := `
		UPDATE handover_requests
		SET status = $1, resolved_at = now()
		WHERE status = $2 AND requested_at < $3
		RETURNING id, conversation_id, merchant_id, reason, priority, status, trigger_message,
		          sentiment_score, agent_id, agent_name, resolution, requested_at, accepted_at, resolved_at`

	rows, err := r.pool.Query(ctx, query, domain.HandoverTimedOut, domain.HandoverPending, cutoff)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to expire handover requests", err)
	}
	defer rows.Close()
	return scanHandovers(rows)
}

// ListPending lists open requests for a merchant, most urgent first.
func (r *Repo) ListPending(ctx context.Context, merchantID uuid.UUID) ([]HandoverRequest, error) {
	query := selectHandover + `
		WHERE merchant_id = $1 AND status = $2
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				ELSE 3
			END,
			requested_at ASC`

	rows, err := r.pool.Query(ctx, query, merchantID, domain.HandoverPending)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list pending handovers", err)
	}
	defer rows.Close()
	return scanHandovers(rows)
}

const selectHandover = `
	SELECT id, conversation_id, merchant_id, reason, priority, status, trigger_message,
	       sentiment_score, agent_id, agent_name, resolution, requested_at, accepted_at, resolved_at
	FROM handover_requests`

func handoverFields(hr *HandoverRequest) []any {
	return []any{
		&hr.ID, &hr.ConversationID, &hr.MerchantID, &hr.Reason, &hr.Priority, &hr.Status,
		&hr.TriggerMessage, &hr.SentimentScore, &hr.AgentID, &hr.AgentName, &hr.Resolution,
		&hr.RequestedAt, &hr.AcceptedAt, &hr.ResolvedAt,
	}
}

func scanHandovers(rows pgx.Rows) ([]HandoverRequest, error) {
	var out []HandoverRequest
	for rows.Next() {
		var hr HandoverRequest
		if err := rows.Scan(handoverFields(&hr)...); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan handover request", err)
		}
		out = append(out, hr)
	}
	return out, rows.Err()
}
