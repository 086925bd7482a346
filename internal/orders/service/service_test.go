package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/classifier"
	"igcommerce_backend/internal/events"
	"igcommerce_backend/internal/orders/domain"
	"igcommerce_backend/internal/orders/repository"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
)

type fakeRepo struct {
	orders      map[uuid.UUID]repository.Order
	history     map[uuid.UUID][]repository.StatusChange
	extractions []repository.StoredExtraction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:  map[uuid.UUID]repository.Order{},
		history: map[uuid.UUID][]repository.StatusChange{},
	}
}

func (f *fakeRepo) CreateOrder(_ context.Context, order repository.Order) (repository.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	f.history[order.ID] = append(f.history[order.ID], repository.StatusChange{
		OrderID: order.ID, ToStatus: order.Status, Actor: "system",
	})
	return order, nil
}

func (f *fakeRepo) GetOrder(_ context.Context, merchantID, id uuid.UUID) (repository.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.MerchantID != merchantID {
		return repository.Order{}, apperr.NotFound("order not found")
	}
	return o, nil
}

func (f *fakeRepo) ListOrders(_ context.Context, merchantID uuid.UUID) ([]repository.Order, error) {
	var out []repository.Order
	for _, o := range f.orders {
		if o.MerchantID == merchantID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to, actor string) (bool, error) {
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	f.orders[id] = o
	f.history[id] = append(f.history[id], repository.StatusChange{
		OrderID: id, FromStatus: from, ToStatus: to, Actor: actor,
	})
	return true, nil
}

func (f *fakeRepo) StatusHistory(_ context.Context, orderID uuid.UUID) ([]repository.StatusChange, error) {
	return f.history[orderID], nil
}

func (f *fakeRepo) SaveExtraction(_ context.Context, ex repository.StoredExtraction) error {
	f.extractions = append(f.extractions, ex)
	return nil
}

func (f *fakeRepo) LatestIncomplete(_ context.Context, conversationID string) (*repository.StoredExtraction, error) {
	for i := len(f.extractions) - 1; i >= 0; i-- {
		if f.extractions[i].ConversationID == conversationID && !f.extractions[i].Complete {
			ex := f.extractions[i]
			return &ex, nil
		}
	}
	return nil, nil
}

type fakeGateway struct {
	extraction classifier.Extraction
}

func (f *fakeGateway) AnalyzeSentiment(context.Context, string, string) (classifier.Sentiment, error) {
	return classifier.DefaultSentiment(), nil
}

func (f *fakeGateway) ClassifyIntent(context.Context, string, string) (classifier.Intent, error) {
	return classifier.DefaultIntent(), nil
}

func (f *fakeGateway) ExtractOrder(context.Context, classifier.ExtractRequest) (classifier.Extraction, error) {
	return f.extraction, nil
}

func (f *fakeGateway) GenerateReply(context.Context, classifier.ReplyRequest) (classifier.Reply, error) {
	return classifier.Reply{Text: "ok"}, nil
}

type fakeCatalog struct {
	merchant catalog.Merchant
	products []catalog.Product
}

func (f *fakeCatalog) MerchantByPageID(context.Context, string) (catalog.Merchant, error) {
	return f.merchant, nil
}

func (f *fakeCatalog) MerchantByID(context.Context, uuid.UUID) (catalog.Merchant, error) {
	return f.merchant, nil
}

func (f *fakeCatalog) ActiveProducts(context.Context, uuid.UUID) ([]catalog.Product, error) {
	return f.products, nil
}

func completeExtraction() classifier.Extraction {
	return classifier.Extraction{
		Intent:     classifier.ExtractionOrderPlacement,
		Confidence: 0.85,
		Products: []classifier.ExtractedProduct{
			{Name: "red shoes", Quantity: 2, Confidence: 0.95},
		},
		Customer: classifier.ExtractedCustomer{
			Name:  &classifier.ConfidentValue{Value: "Lina Haddad", Confidence: 0.9},
			Phone: &classifier.PhoneValue{ConfidentValue: classifier.ConfidentValue{Value: "0791234567", Confidence: 0.9}},
		},
		Shipping: classifier.ExtractedShipping{
			Address: &classifier.ConfidentValue{Value: "Amman, Abdoun", Confidence: 0.8},
		},
	}
}

func setup(gw *fakeGateway) (*Service, *fakeRepo, catalog.Merchant) {
	repo := newFakeRepo()
	log := logger.New("test")
	merchant := catalog.Merchant{
		ID:           uuid.New(),
		PageID:       "page-1",
		BusinessName: "Shoe Palace",
	}
	productID := uuid.New()
	cat := &fakeCatalog{
		merchant: merchant,
		products: []catalog.Product{
			{ID: productID, MerchantID: merchant.ID, Name: "Red Shoes - Size 42", Price: 45, Currency: "JOD", IsActive: true},
		},
	}
	svc := New(repo, gw, cat, events.NewInMemoryBus(log), log)
	return svc, repo, merchant
}

func TestProcessMessageAutoCreatesOrder(t *testing.T) {
	svc, repo, merchant := setup(&fakeGateway{extraction: completeExtraction()})

	outcome, err := svc.ProcessMessage(context.Background(), merchant, "conv-1", "cust-1", "mid-1", "I want two red shoes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Order == nil {
		t.Fatalf("expected an order, got questions %v", outcome.Questions)
	}
	if outcome.Order.Status != domain.StatusPendingConfirmation {
		t.Errorf("new orders start pending_confirmation, got %q", outcome.Order.Status)
	}
	if outcome.Order.TotalAmount != 90 {
		t.Errorf("2 x 45 should total 90, got %v", outcome.Order.TotalAmount)
	}
	if outcome.Order.CustomerPhone != "+962791234567" {
		t.Errorf("phone should be normalized to E.164, got %q", outcome.Order.CustomerPhone)
	}
	if len(repo.extractions) != 1 || !repo.extractions[0].Complete {
		t.Error("accepted extraction should be stored as complete")
	}
	if len(outcome.Order.Items) != 1 || outcome.Order.Items[0].ProductID == nil {
		t.Errorf("item should bind to the catalog product, got %+v", outcome.Order.Items)
	}
}

func TestProcessMessageIncompleteAsksInstead(t *testing.T) {
	ex := completeExtraction()
	ex.Shipping.Address = nil
	svc, repo, merchant := setup(&fakeGateway{extraction: ex})

	outcome, err := svc.ProcessMessage(context.Background(), merchant, "conv-1", "cust-1", "mid-1", "I want red shoes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Order != nil {
		t.Fatal("incomplete extraction must not create an order")
	}
	if len(outcome.Questions) != 1 {
		t.Errorf("expected exactly one clarification, got %v", outcome.Questions)
	}
	if len(repo.extractions) != 1 || repo.extractions[0].Complete {
		t.Error("rejected extraction should be stored as incomplete")
	}
}

func TestProcessMessageMergesContactFromEarlierTurn(t *testing.T) {
	// Turn 1: contact details only, no products. Critical error, no order.
	first := completeExtraction()
	first.Products = nil
	gw := &fakeGateway{extraction: first}
	svc, _, merchant := setup(gw)
	ctx := context.Background()

	if outcome, err := svc.ProcessMessage(ctx, merchant, "conv-1", "cust-1", "mid-1", "I'm Lina, 0791234567, Abdoun", nil); err != nil || outcome.Order != nil {
		t.Fatalf("first turn should leave the order uncreated (err=%v)", err)
	}

	// Turn 2: products only; contact fields are inherited from turn 1.
	gw.extraction = classifier.Extraction{
		Intent:     classifier.ExtractionOrderPlacement,
		Confidence: 0.85,
		Products: []classifier.ExtractedProduct{
			{Name: "red shoes", Quantity: 1, Confidence: 0.9},
		},
	}

	outcome, err := svc.ProcessMessage(ctx, merchant, "conv-1", "cust-1", "mid-2", "one pair of red shoes please", nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Order == nil {
		t.Fatalf("second turn should complete the order via the merged contact, got questions %v", outcome.Questions)
	}
	if outcome.Order.CustomerName != "Lina Haddad" {
		t.Errorf("contact fields should merge from the earlier turn, got %q", outcome.Order.CustomerName)
	}
	if outcome.Order.Items[0].Quantity != 1 {
		t.Errorf("products must come from the current turn only, got %+v", outcome.Order.Items)
	}
}

func TestUpdateStatusEnforcesLifecycle(t *testing.T) {
	svc, _, merchant := setup(&fakeGateway{extraction: completeExtraction()})
	ctx := context.Background()

	outcome, err := svc.ProcessMessage(ctx, merchant, "conv-1", "cust-1", "mid-1", "order", nil)
	if err != nil || outcome.Order == nil {
		t.Fatalf("setup order failed: %v", err)
	}
	id := outcome.Order.ID

	if _, err := svc.UpdateStatus(ctx, merchant.ID, id, domain.StatusShipped, "agent-1"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("skipping statuses should conflict, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, merchant.ID, id, domain.StatusConfirmed, "agent-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, merchant.ID, id, domain.StatusCancelled, "agent-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, merchant.ID, id, domain.StatusProcessing, "agent-1"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("cancelled orders are terminal, got %v", err)
	}

	history, err := svc.History(ctx, merchant.ID, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Errorf("every transition should append history, got %d entries", len(history))
	}
}
