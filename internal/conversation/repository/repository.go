package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Conversation is one customer thread with a merchant. The ID is the
// deterministic pair key "<merchantID>_<customerID>" so concurrent webhook
// deliveries for the same thread converge on one row.
type Conversation struct {
	ID             string
	MerchantID     uuid.UUID
	CustomerID     string
	PageID         string
	State          string
	Version        int64
	Language       string
	LastCustomerAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Message sender roles.
const (
	SenderCustomer = "customer"
	SenderAI       = "ai"
	SenderAgent    = "agent"
)

// Message is one stored conversation turn.
type Message struct {
	ID             uuid.UUID
	ConversationID string
	Sender         string
	Text           string
	PlatformMsgID  string
	Kind           string
	AudioURL       string
	SentimentScore float64
	Intent         string
	CreatedAt      time.Time
}

// HandoverRequest is one escalation of a conversation to a human agent.
type HandoverRequest struct {
	ID             uuid.UUID
	ConversationID string
	MerchantID     uuid.UUID
	Reason         string
	Priority       string
	Status         string
	TriggerMessage string
	SentimentScore float64
	AgentID        *string
	AgentName      *string
	Resolution     *string
	RequestedAt    time.Time
	AcceptedAt     *time.Time
	ResolvedAt     *time.Time
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// Ensure upserts the conversation row for a customer/merchant pair and
	// returns its current state.
	Ensure(ctx context.Context, conv Conversation) (Conversation, error)
	Get(ctx context.Context, id string) (Conversation, error)
	// UpdateState performs a compare-and-swap on the version column. It
	// reports false when another writer got there first.
	UpdateState(ctx context.Context, id, newState string, version int64) (bool, error)
	TouchCustomerActivity(ctx context.Context, id string, at time.Time) error
	ListLive(ctx context.Context, merchantID uuid.UUID) ([]Conversation, error)

	AddMessage(ctx context.Context, msg Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// HandoverStore persists handover requests.
type HandoverStore interface {
	Create(ctx context.Context, hr HandoverRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (HandoverRequest, error)
	// HasOpen reports whether a pending or accepted request already exists
	// for the conversation.
	HasOpen(ctx context.Context, conversationID string) (bool, error)
	// Accept moves a request from pending to accepted. It reports false when
	// the request was not pending (already taken, resolved, or timed out).
	Accept(ctx context.Context, id uuid.UUID, agentID, agentName string, at time.Time) (bool, error)
	// Resolve moves a request from accepted to resolved. It reports false
	// when the request was not accepted.
	Resolve(ctx context.Context, id uuid.UUID, resolution string, at time.Time) (bool, error)
	// ExpirePending times out every pending request older than the cutoff
	// and returns the expired rows.
	ExpirePending(ctx context.Context, cutoff time.Time) ([]HandoverRequest, error)
	ListPending(ctx context.Context, merchantID uuid.UUID) ([]HandoverRequest, error)
}

// Repository combines conversation and handover persistence.
type Repository interface {
	ConversationStore
	HandoverStore
}
