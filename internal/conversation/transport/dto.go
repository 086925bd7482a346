// Package transport defines request and response DTOs for the conversation
// HTTP surface.
package transport

import (
	"time"

	"igcommerce_backend/internal/conversation/domain"
	"igcommerce_backend/internal/conversation/repository"
)

// RequestHandoverRequest asks for a customer thread to be escalated to a
// human. The dashboard addresses threads by customer and page.
type RequestHandoverRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
	PageID     string `json:"pageId" validate:"required"`
	Reason     string `json:"reason" validate:"required,oneof=negative_sentiment complex_issue manual_request escalation"`
	Message    string `json:"message"`
}

// AcceptHandoverRequest claims a pending handover for the calling agent.
type AcceptHandoverRequest struct {
	AgentName string `json:"agentName" validate:"required,max=120"`
}

// ManualMessageRequest carries an agent-authored message to the customer.
type ManualMessageRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// ResolveHandoverRequest closes an accepted handover.
type ResolveHandoverRequest struct {
	Resolution string `json:"resolution" validate:"max=500"`
}

// HandoverResponse is the wire form of a handover request.
type HandoverResponse struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Reason         string     `json:"reason"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	TriggerMessage string     `json:"triggerMessage,omitempty"`
	AgentID        *string    `json:"agentId,omitempty"`
	AgentName      *string    `json:"agentName,omitempty"`
	Resolution     *string    `json:"resolution,omitempty"`
	RequestedAt    time.Time  `json:"requestedAt"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

// FromHandover maps a repository handover to its wire form.
func FromHandover(hr repository.HandoverRequest) HandoverResponse {
	return HandoverResponse{
		ID:             hr.ID.String(),
		ConversationID: hr.ConversationID,
		Reason:         hr.Reason,
		Priority:       hr.Priority,
		Status:         hr.Status,
		TriggerMessage: hr.TriggerMessage,
		AgentID:        hr.AgentID,
		AgentName:      hr.AgentName,
		Resolution:     hr.Resolution,
		RequestedAt:    hr.RequestedAt,
		AcceptedAt:     hr.AcceptedAt,
		ResolvedAt:     hr.ResolvedAt,
	}
}

// FromHandovers maps a slice of handovers.
func FromHandovers(hrs []repository.HandoverRequest) []HandoverResponse {
	out := make([]HandoverResponse, 0, len(hrs))
	for _, hr := range hrs {
		out = append(out, FromHandover(hr))
	}
	return out
}

// ConversationResponse is the wire form of a conversation.
type ConversationResponse struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customerId"`
	PageID         string    `json:"pageId"`
	State          string    `json:"state"`
	AIPaused       bool      `json:"aiPaused"`
	Language       string    `json:"language"`
	LastCustomerAt time.Time `json:"lastCustomerAt"`
}

// FromConversation maps a repository conversation to its wire form.
func FromConversation(c repository.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		PageID:         c.PageID,
		State:          c.State,
		AIPaused:       domain.IsAIPaused(c.State),
		Language:       c.Language,
		LastCustomerAt: c.LastCustomerAt,
	}
}

// FromConversations maps a slice of conversations.
func FromConversations(cs []repository.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromConversation(c))
	}
	return out
}

// AIStatusResponse reports whether the AI is paused on a conversation.
type AIStatusResponse struct {
	AIPaused bool `json:"aiPaused"`
}

// ConversationStatusResponse reports the conversation state after a close.
type ConversationStatusResponse struct {
	Status string `json:"status"`
}
