// Package service implements the conversation ownership workflow: requesting,
// accepting, resolving, and expiring handovers between the AI and human
// agents.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"igcommerce_backend/internal/conversation/domain"
	"igcommerce_backend/internal/conversation/repository"
	"igcommerce_backend/internal/events"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
)

// Deliverer sends outbound text to a customer on behalf of a page. The
// delivery module satisfies this; the interface keeps the dependency pointing
// outward.
type Deliverer interface {
	SendText(ctx context.Context, pageID, recipientID, text string) error
}

// MerchantResolver maps a page id to its merchant, for the manual handover
// path where the dashboard only knows the customer and page.
type MerchantResolver interface {
	MerchantID(ctx context.Context, pageID string) (uuid.UUID, error)
}

// Service coordinates the conversation state machine.
type Service struct {
	repo      repository.Repository
	bus       events.Bus
	deliverer Deliverer
	merchants MerchantResolver
	log       *logger.Logger
}

// New creates a new conversation service.
func New(repo repository.Repository, bus events.Bus, deliverer Deliverer, merchants MerchantResolver, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, deliverer: deliverer, merchants: merchants, log: log}
}

// casAttempts bounds the optimistic-lock retry loop. Contention on a single
// conversation is two or three writers at most (webhook, dashboard, sweeper).
const casAttempts = 3

// ConversationKey builds the deterministic pair key for a customer thread.
func ConversationKey(merchantID uuid.UUID, customerID string) string {
	return merchantID.String() + "_" + customerID
}

// Ensure upserts the conversation for an inbound customer message and returns
// its current state.
func (s *Service) Ensure(ctx context.Context, conv repository.Conversation) (repository.Conversation, error) {
	return s.repo.Ensure(ctx, conv)
}

// Get returns a conversation by its pair key.
func (s *Service) Get(ctx context.Context, id string) (repository.Conversation, error) {
	return s.repo.Get(ctx, id)
}

// IsAIPaused reports whether the AI must stay silent on this conversation.
// A missing conversation means no handover ever happened, so the AI may speak.
func (s *Service) IsAIPaused(ctx context.Context, id string) (bool, error) {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return domain.IsAIPaused(conv.State), nil
}

// RequestHandover escalates a conversation to a human agent. It is
// deduplicating: a conversation with an open request keeps it and the call
// fails with a conflict.
func (s *Service) RequestHandover(ctx context.Context, conversationID, reason, triggerMessage string, sentimentScore float64) (repository.HandoverRequest, error) {
	if !domain.IsValidReason(reason) {
		return repository.HandoverRequest{}, apperr.Validation("invalid handover reason")
	}

	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return repository.HandoverRequest{}, err
	}

	open, err := s.repo.HasOpen(ctx, conversationID)
	if err != nil {
		return repository.HandoverRequest{}, err
	}
	if open {
		return repository.HandoverRequest{}, apperr.Conflict("conversation already has an open handover request")
	}

	if err := s.transition(ctx, conv, domain.StateHandoverPending); err != nil {
		return repository.HandoverRequest{}, err
	}

	hr := repository.HandoverRequest{
		ID:             uuid.New(),
		ConversationID: conversationID,
		MerchantID:     conv.MerchantID,
		Reason:         reason,
		Priority:       domain.PriorityFor(reason, sentimentScore),
		Status:         domain.HandoverPending,
		TriggerMessage: triggerMessage,
		SentimentScore: sentimentScore,
		RequestedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, hr); err != nil {
		return repository.HandoverRequest{}, err
	}

	s.log.HandoverTransition(hr.ID.String(), conversationID, domain.StateAIActive, domain.StateHandoverPending)
	s.bus.Publish(ctx, events.HandoverRequested{
		BaseEvent:      events.NewBaseEvent(),
		HandoverID:     hr.ID,
		MerchantID:     conv.MerchantID.String(),
		CustomerID:     conv.CustomerID,
		PageID:         conv.PageID,
		ConversationID: conversationID,
		Reason:         reason,
		Priority:       hr.Priority,
		TriggerMessage: triggerMessage,
	})
	return hr, nil
}

// RequestManualHandover is the dashboard path: the caller knows the customer
// and page, not the conversation key. The conversation row is created on the
// fly if the customer has never messaged before.
func (s *Service) RequestManualHandover(ctx context.Context, pageID, customerID, reason, message string) (repository.HandoverRequest, error) {
	merchantID, err := s.merchants.MerchantID(ctx, pageID)
	if err != nil {
		return repository.HandoverRequest{}, err
	}

	conv, err := s.repo.Ensure(ctx, repository.Conversation{
		ID:         ConversationKey(merchantID, customerID),
		MerchantID: merchantID,
		CustomerID: customerID,
		PageID:     pageID,
	})
	if err != nil {
		return repository.HandoverRequest{}, err
	}
	return s.RequestHandover(ctx, conv.ID, reason, message, 0)
}

// AutoEscalate requests a handover on behalf of the sentiment analyzer. It is
// a best-effort no-op when the conversation is already escalated.
func (s *Service) AutoEscalate(ctx context.Context, conversationID, reason, triggerMessage string, sentimentScore float64) {
	_, err := s.RequestHandover(ctx, conversationID, reason, triggerMessage, sentimentScore)
	if err != nil && !apperr.Is(err, apperr.KindConflict) {
		s.log.Error("auto escalation failed",
			"conversation_id", conversationID, "reason", reason, "error", err)
	}
}

// Accept claims a pending handover for an agent and hands the conversation to
// them. Exactly one of several concurrent accepts wins.
func (s *Service) Accept(ctx context.Context, handoverID uuid.UUID, agentID, agentName string) (repository.HandoverRequest, error) {
	hr, err := s.repo.GetByID(ctx, handoverID)
	if err != nil {
		return repository.HandoverRequest{}, err
	}

	now := time.Now().UTC()
	ok, err := s.repo.Accept(ctx, handoverID, agentID, agentName, now)
	if err != nil {
		return repository.HandoverRequest{}, err
	}
	if !ok {
		return repository.HandoverRequest{}, apperr.Conflict("handover request is no longer pending")
	}

	conv, err := s.repo.Get(ctx, hr.ConversationID)
	if err != nil {
		return repository.HandoverRequest{}, err
	}
	if err := s.transition(ctx, conv, domain.StateHumanActive); err != nil {
		return repository.HandoverRequest{}, err
	}

	hr.Status = domain.HandoverAccepted
	hr.AgentID = &agentID
	hr.AgentName = &agentName
	hr.AcceptedAt = &now

	s.log.HandoverTransition(handoverID.String(), hr.ConversationID, domain.StateHandoverPending, domain.StateHumanActive)
	s.bus.Publish(ctx, events.HandoverAccepted{
		BaseEvent:      events.NewBaseEvent(),
		HandoverID:     handoverID,
		MerchantID:     hr.MerchantID.String(),
		ConversationID: hr.ConversationID,
		AgentID:        agentID,
		AgentName:      agentName,
	})
	return hr, nil
}

// SendManualMessage delivers an agent-authored message to the customer. Only
// the agent who accepted the handover may speak through it.
func (s *Service) SendManualMessage(ctx context.Context, handoverID uuid.UUID, agentID, text string) error {
	if text == "" {
		return apperr.Validation("message text is required")
	}

	hr, err := s.repo.GetByID(ctx, handoverID)
	if err != nil {
		return err
	}
	if hr.Status != domain.HandoverAccepted {
		return apperr.Conflict("handover request is not accepted")
	}
	if hr.AgentID == nil || *hr.AgentID != agentID {
		return apperr.Forbidden("handover is owned by another agent")
	}

	conv, err := s.repo.Get(ctx, hr.ConversationID)
	if err != nil {
		return err
	}

	if err := s.deliverer.SendText(ctx, conv.PageID, conv.CustomerID, text); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to deliver agent message", err)
	}

	return s.repo.AddMessage(ctx, repository.Message{
		ConversationID: hr.ConversationID,
		Sender:         repository.SenderAgent,
		Text:           text,
		Kind:           "text",
	})
}

// Resolve closes an accepted handover and returns the conversation to the AI.
func (s *Service) Resolve(ctx context.Context, handoverID uuid.UUID, agentID, resolution string) error {
	hr, err := s.repo.GetByID(ctx, handoverID)
	if err != nil {
		return err
	}
	if hr.Status != domain.HandoverAccepted {
		return apperr.Conflict("handover request is not accepted")
	}
	if hr.AgentID == nil || *hr.AgentID != agentID {
		return apperr.Forbidden("handover is owned by another agent")
	}

	ok, err := s.repo.Resolve(ctx, handoverID, resolution, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("handover request is no longer accepted")
	}

	conv, err := s.repo.Get(ctx, hr.ConversationID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, conv, domain.StateAIActive); err != nil {
		return err
	}

	s.log.HandoverTransition(handoverID.String(), hr.ConversationID, domain.StateHumanActive, domain.StateAIActive)
	s.bus.Publish(ctx, events.HandoverResolved{
		BaseEvent:      events.NewBaseEvent(),
		HandoverID:     handoverID,
		MerchantID:     hr.MerchantID.String(),
		ConversationID: hr.ConversationID,
		AgentID:        agentID,
		Resolution:     resolution,
	})
	return nil
}

// ExpireStale times out pending requests older than the timeout and returns
// their conversations to the AI. Called by the scheduler sweep.
func (s *Service) ExpireStale(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-timeout)
	expired, err := s.repo.ExpirePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, hr := range expired {
		conv, err := s.repo.Get(ctx, hr.ConversationID)
		if err != nil {
			s.log.Error("expired handover has no conversation", "handover_id", hr.ID, "error", err)
			continue
		}
		if err := s.transition(ctx, conv, domain.StateAIActive); err != nil {
			s.log.Error("failed to release expired conversation", "conversation_id", conv.ID, "error", err)
			continue
		}

		s.log.HandoverTransition(hr.ID.String(), hr.ConversationID, domain.StateHandoverPending, domain.StateAIActive)
		s.bus.Publish(ctx, events.HandoverTimedOut{
			BaseEvent:      events.NewBaseEvent(),
			HandoverID:     hr.ID,
			MerchantID:     hr.MerchantID.String(),
			ConversationID: hr.ConversationID,
		})
	}
	return len(expired), nil
}

// ListPending lists a merchant's open handover requests, most urgent first.
func (s *Service) ListPending(ctx context.Context, merchantID uuid.UUID) ([]repository.HandoverRequest, error) {
	return s.repo.ListPending(ctx, merchantID)
}

// ListLive lists a merchant's conversations currently off AI control.
func (s *Service) ListLive(ctx context.Context, merchantID uuid.UUID) ([]repository.Conversation, error) {
	return s.repo.ListLive(ctx, merchantID)
}

// Close marks a conversation resolved. Rows are never deleted: a closed
// conversation reopens as ai_active the next time the customer writes. A
// conversation with an open handover must go through Resolve instead.
func (s *Service) Close(ctx context.Context, id string) error {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	open, err := s.repo.HasOpen(ctx, id)
	if err != nil {
		return err
	}
	if open {
		return apperr.Conflict("conversation has an open handover request")
	}
	return s.transition(ctx, conv, domain.StateResolved)
}

// RecordMessage stores one conversation turn.
func (s *Service) RecordMessage(ctx context.Context, msg repository.Message) error {
	return s.repo.AddMessage(ctx, msg)
}

// RecentMessages returns the newest limit messages, oldest first.
func (s *Service) RecentMessages(ctx context.Context, conversationID string, limit int) ([]repository.Message, error) {
	return s.repo.RecentMessages(ctx, conversationID, limit)
}

// transition moves a conversation to a new state under optimistic locking.
// Already being in the target state is treated as success so retried calls
// and races between identical writers converge.
func (s *Service) transition(ctx context.Context, conv repository.Conversation, to string) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		if conv.State == to {
			return nil
		}
		if !domain.CanTransition(conv.State, to) {
			return apperr.Conflict("conversation cannot move from " + conv.State + " to " + to)
		}

		ok, err := s.repo.UpdateState(ctx, conv.ID, to, conv.Version)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		conv, err = s.repo.Get(ctx, conv.ID)
		if err != nil {
			return err
		}
	}
	return apperr.Conflict("conversation is being modified concurrently")
}
