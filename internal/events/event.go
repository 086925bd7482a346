// Package events defines the domain events exchanged between modules.
package events

import (
	platformevents "igcommerce_backend/platform/events"

	"github.com/google/uuid"
)

// Re-exported platform types so modules only import internal/events.
type (
	Event       = platformevents.Event
	BaseEvent   = platformevents.BaseEvent
	Handler     = platformevents.Handler
	HandlerFunc = platformevents.HandlerFunc
	Bus         = platformevents.Bus
)

// NewBaseEvent creates a base event stamped with the current time.
func NewBaseEvent() BaseEvent { return platformevents.NewBaseEvent() }

// Event names.
const (
	EventHandoverRequested = "handover.requested"
	EventHandoverAccepted  = "handover.accepted"
	EventHandoverResolved  = "handover.resolved"
	EventHandoverTimedOut  = "handover.timeout"
	EventOrderCreated      = "order.created"
	EventOutboxDue         = "notification.outbox.due"
)

// HandoverRequested fires when a conversation enters handover_pending.
type HandoverRequested struct {
	BaseEvent
	HandoverID     uuid.UUID `json:"handoverId"`
	MerchantID     string    `json:"merchantId"`
	CustomerID     string    `json:"customerId"`
	PageID         string    `json:"pageId"`
	ConversationID string    `json:"conversationId"`
	Reason         string    `json:"reason"`
	Priority       string    `json:"priority"`
	TriggerMessage string    `json:"triggerMessage"`
}

func (HandoverRequested) EventName() string { return EventHandoverRequested }

// HandoverAccepted fires when a human agent takes over a conversation.
type HandoverAccepted struct {
	BaseEvent
	HandoverID     uuid.UUID `json:"handoverId"`
	MerchantID     string    `json:"merchantId"`
	ConversationID string    `json:"conversationId"`
	AgentID        string    `json:"agentId"`
	AgentName      string    `json:"agentName"`
}

func (HandoverAccepted) EventName() string { return EventHandoverAccepted }

// HandoverResolved fires when control returns to the AI.
type HandoverResolved struct {
	BaseEvent
	HandoverID     uuid.UUID `json:"handoverId"`
	MerchantID     string    `json:"merchantId"`
	ConversationID string    `json:"conversationId"`
	AgentID        string    `json:"agentId"`
	Resolution     string    `json:"resolution,omitempty"`
}

func (HandoverResolved) EventName() string { return EventHandoverResolved }

// HandoverTimedOut fires when a pending request expires unaccepted.
type HandoverTimedOut struct {
	BaseEvent
	HandoverID     uuid.UUID `json:"handoverId"`
	MerchantID     string    `json:"merchantId"`
	ConversationID string    `json:"conversationId"`
}

func (HandoverTimedOut) EventName() string { return EventHandoverTimedOut }

// OrderCreated fires when the extraction pipeline auto-creates an order.
type OrderCreated struct {
	BaseEvent
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	MerchantID  string    `json:"merchantId"`
	CustomerID  string    `json:"customerId"`
	Confidence  float64   `json:"confidence"`
}

func (OrderCreated) EventName() string { return EventOrderCreated }

// OutboxDue fires when a scheduled notification outbox row is due for dispatch.
type OutboxDue struct {
	BaseEvent
	OutboxID   uuid.UUID `json:"outboxId"`
	MerchantID string    `json:"merchantId"`
}

func (OutboxDue) EventName() string { return EventOutboxDue }
