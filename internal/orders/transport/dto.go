// Package transport defines request and response DTOs for the orders HTTP
// surface.
package transport

import (
	"time"

	"igcommerce_backend/internal/orders/repository"
)

// UpdateStatusRequest moves an order to a new lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending_confirmation confirmed processing shipped delivered cancelled refunded"`
}

// OrderItemResponse is the wire form of one order line.
type OrderItemResponse struct {
	ProductID *string `json:"productId,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

// OrderResponse is the wire form of an order.
type OrderResponse struct {
	ID                   string              `json:"id"`
	OrderNumber          string              `json:"orderNumber"`
	CustomerID           string              `json:"customerId"`
	ConversationID       string              `json:"conversationId"`
	Status               string              `json:"status"`
	CustomerName         string              `json:"customerName"`
	CustomerPhone        string              `json:"customerPhone"`
	ShippingAddress      string              `json:"shippingAddress"`
	DeliveryInstructions string              `json:"deliveryInstructions,omitempty"`
	TotalAmount          float64             `json:"totalAmount"`
	Currency             string              `json:"currency"`
	Confidence           float64             `json:"confidence"`
	Items                []OrderItemResponse `json:"items,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// FromOrder maps a repository order to its wire form.
func FromOrder(o repository.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		var productID *string
		if item.ProductID != nil {
			s := item.ProductID.String()
			productID = &s
		}
		items = append(items, OrderItemResponse{
			ProductID: productID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}

	return OrderResponse{
		ID:                   o.ID.String(),
		OrderNumber:          o.OrderNumber,
		CustomerID:           o.CustomerID,
		ConversationID:       o.ConversationID,
		Status:               o.Status,
		CustomerName:         o.CustomerName,
		CustomerPhone:        o.CustomerPhone,
		ShippingAddress:      o.ShippingAddress,
		DeliveryInstructions: o.DeliveryInstructions,
		TotalAmount:          o.TotalAmount,
		Currency:             o.Currency,
		Confidence:           o.Confidence,
		Items:                items,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// FromOrders maps a slice of orders.
func FromOrders(orders []repository.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}

// StatusChangeResponse is one entry of the order status history.
type StatusChangeResponse struct {
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromHistory maps a status history log.
func FromHistory(history []repository.StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, 0, len(history))
	for _, sc := range history {
		out = append(out, StatusChangeResponse{
			FromStatus: sc.FromStatus,
			ToStatus:   sc.ToStatus,
			Actor:      sc.Actor,
			CreatedAt:  sc.CreatedAt,
		})
	}
	return out
}
