package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"igcommerce_backend/internal/classifier"
)

// Order is a persisted order created from a conversation.
type Order struct {
	ID                   uuid.UUID
	OrderNumber          string
	MerchantID           uuid.UUID
	CustomerID           string
	PageID               string
	ConversationID       string
	Status               string
	CustomerName         string
	CustomerPhone        string
	ShippingAddress      string
	DeliveryInstructions string
	TotalAmount          float64
	Currency             string
	Confidence           float64
	SourceMessageID      string
	Items                []OrderItem
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OrderItem is one line of an order. ProductID is nil when the extracted
// product could not be bound to a catalog entry.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID *uuid.UUID
	Name      string
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

// StatusChange is one entry of the immutable order status history.
type StatusChange struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	Actor      string
	CreatedAt  time.Time
}

// StoredExtraction is a persisted pipeline input, kept so a later message in
// the same conversation can inherit contact fields.
type StoredExtraction struct {
	ID             uuid.UUID
	ConversationID string
	Extraction     classifier.Extraction
	Complete       bool
	CreatedAt      time.Time
}

// Repository persists orders, their status history, and extractions.
type Repository interface {
	CreateOrder(ctx context.Context, order Order) (Order, error)
	GetOrder(ctx context.Context, merchantID, id uuid.UUID) (Order, error)
	ListOrders(ctx context.Context, merchantID uuid.UUID) ([]Order, error)
	// UpdateStatus moves an order between statuses and appends a history row
	// atomically. It reports false when the order was not in the expected
	// status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to, actor string) (bool, error)
	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error)

	SaveExtraction(ctx context.Context, ex StoredExtraction) error
	// LatestIncomplete returns the most recent incomplete extraction for a
	// conversation, or nil when there is none.
	LatestIncomplete(ctx context.Context, conversationID string) (*StoredExtraction, error)
}
