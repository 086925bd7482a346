// Package service runs the order extraction pipeline against inbound
// messages and manages the resulting orders.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/classifier"
	"igcommerce_backend/internal/events"
	"igcommerce_backend/internal/orders/domain"
	"igcommerce_backend/internal/orders/pipeline"
	"igcommerce_backend/internal/orders/repository"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
	"igcommerce_backend/platform/phone"
)

// Service coordinates extraction, validation, and order persistence.
type Service struct {
	repo     repository.Repository
	gateway  classifier.Gateway
	catalogs catalog.Reader
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new orders service.
func New(repo repository.Repository, gateway classifier.Gateway, catalogs catalog.Reader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, catalogs: catalogs, bus: bus, log: log}
}

// Outcome is what one pipeline run produced for the message router: either a
// created order, or the clarification questions to relay.
type Outcome struct {
	Order     *repository.Order
	Result    pipeline.Result
	Questions []string
}

// ProcessMessage extracts an order reading from one customer message,
// validates it, and creates the order when the auto-create gate passes.
// Contact fields missing from this turn are inherited from the conversation's
// most recent incomplete extraction; products are not.
func (s *Service) ProcessMessage(ctx context.Context, merchant catalog.Merchant, conversationID, customerID, messageID, text string, history []string) (Outcome, error) {
	products, err := s.catalogs.ActiveProducts(ctx, merchant.ID)
	if err != nil {
		return Outcome{}, err
	}
	catalogProducts := toCatalogProducts(products)

	extraction, err := s.gateway.ExtractOrder(ctx, classifier.ExtractRequest{
		MessageText:      text,
		BusinessName:     merchant.BusinessName,
		BusinessLocation: merchant.BusinessLocation,
		Catalog:          catalogProducts,
		PreviousMessages: history,
	})
	if err != nil {
		return Outcome{}, err
	}

	previous, err := s.repo.LatestIncomplete(ctx, conversationID)
	if err != nil {
		s.log.Error("failed to load previous extraction", "conversation_id", conversationID, "error", err)
	}
	if previous != nil {
		extraction = pipeline.Merge(extraction, &previous.Extraction)
	}

	result := pipeline.Validate(extraction, catalogProducts)
	outcome := Outcome{Result: result, Questions: result.Questions}

	if !result.ShouldAutoCreate {
		if err := s.repo.SaveExtraction(ctx, repository.StoredExtraction{
			ConversationID: conversationID,
			Extraction:     extraction,
			Complete:       false,
		}); err != nil {
			s.log.Error("failed to store extraction", "conversation_id", conversationID, "error", err)
		}
		return outcome, nil
	}

	order, err := s.createOrder(ctx, merchant, conversationID, customerID, messageID, extraction, result, products)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Order = &order

	if err := s.repo.SaveExtraction(ctx, repository.StoredExtraction{
		ConversationID: conversationID,
		Extraction:     extraction,
		Complete:       true,
	}); err != nil {
		s.log.Error("failed to store extraction", "conversation_id", conversationID, "error", err)
	}
	return outcome, nil
}

func (s *Service) createOrder(ctx context.Context, merchant catalog.Merchant, conversationID, customerID, messageID string, extraction classifier.Extraction, result pipeline.Result, products []catalog.Product) (repository.Order, error) {
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID.String()] = p
	}

	var (
		items    []repository.OrderItem
		total    float64
		currency string
	)
	for _, p := range result.Products {
		item := repository.OrderItem{
			Name:     p.Name,
			Quantity: p.Quantity,
		}
		if cp, ok := byID[p.MatchedProductID]; ok {
			id := cp.ID
			item.ProductID = &id
			item.Name = cp.Name
			item.UnitPrice = cp.Price
			item.Subtotal = cp.Price * float64(p.Quantity)
			if currency == "" {
				currency = cp.Currency
			}
		}
		total += item.Subtotal
		items = append(items, item)
	}
	if currency == "" {
		currency = "JOD"
	}

	phoneNumber := ""
	if extraction.Customer.Phone != nil {
		phoneNumber = phone.NormalizeE164(extraction.Customer.Phone.Value)
	}
	address := ""
	if extraction.Shipping.Address != nil {
		address = extraction.Shipping.Address.Value
	} else if extraction.Customer.Address != nil {
		address = extraction.Customer.Address.Value
	}
	instructions := ""
	if extraction.Shipping.DeliveryInstructions != nil {
		instructions = extraction.Shipping.DeliveryInstructions.Value
	}
	name := ""
	if extraction.Customer.Name != nil {
		name = extraction.Customer.Name.Value
	}

	order, err := s.repo.CreateOrder(ctx, repository.Order{
		OrderNumber:          newOrderNumber(),
		MerchantID:           merchant.ID,
		CustomerID:           customerID,
		PageID:               merchant.PageID,
		ConversationID:       conversationID,
		Status:               domain.StatusPendingConfirmation,
		CustomerName:         name,
		CustomerPhone:        phoneNumber,
		ShippingAddress:      address,
		DeliveryInstructions: instructions,
		TotalAmount:          total,
		Currency:             currency,
		Confidence:           extraction.Confidence,
		SourceMessageID:      messageID,
		Items:                items,
	})
	if err != nil {
		return repository.Order{}, err
	}

	s.log.Info("order auto-created",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"merchant_id", merchant.ID, "conversation_id", conversationID,
		"confidence", extraction.Confidence)
	s.bus.Publish(ctx, events.OrderCreated{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		MerchantID:  merchant.ID.String(),
		CustomerID:  customerID,
		Confidence:  extraction.Confidence,
	})
	return order, nil
}

// newOrderNumber builds a customer-facing order reference.
func newOrderNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), suffix)
}

// Get returns one order with its items, scoped to the merchant.
func (s *Service) Get(ctx context.Context, merchantID, id uuid.UUID) (repository.Order, error) {
	return s.repo.GetOrder(ctx, merchantID, id)
}

// List returns a merchant's orders, newest first.
func (s *Service) List(ctx context.Context, merchantID uuid.UUID) ([]repository.Order, error) {
	return s.repo.ListOrders(ctx, merchantID)
}

// History returns an order's status log.
func (s *Service) History(ctx context.Context, merchantID, id uuid.UUID) ([]repository.StatusChange, error) {
	if _, err := s.repo.GetOrder(ctx, merchantID, id); err != nil {
		return nil, err
	}
	return s.repo.StatusHistory(ctx, id)
}

// UpdateStatus advances an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, merchantID, id uuid.UUID, to, actor string) (repository.Order, error) {
	if !domain.IsValidStatus(to) {
		return repository.Order{}, apperr.Validation("unknown order status")
	}

	order, err := s.repo.GetOrder(ctx, merchantID, id)
	if err != nil {
		return repository.Order{}, err
	}
	if !domain.CanTransition(order.Status, to) {
		return repository.Order{}, apperr.Conflict("order cannot move from " + order.Status + " to " + to)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, order.Status, to, actor)
	if err != nil {
		return repository.Order{}, err
	}
	if !ok {
		return repository.Order{}, apperr.Conflict("order status changed concurrently")
	}

	order.Status = to
	return order, nil
}

func toCatalogProducts(products []catalog.Product) []classifier.CatalogProduct {
	out := make([]classifier.CatalogProduct, 0, len(products))
	for _, p := range products {
		out = append(out, classifier.CatalogProduct{
			ID:          p.ID.String(),
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Currency:    p.Currency,
		})
	}
	return out
}
