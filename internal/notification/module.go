// Package notification reacts to domain events by writing in-app
// notification rows and queueing merchant emails through the outbox.
// Subscribing here keeps the conversation and order modules unaware of
// email providers and templates.
package notification

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/events"
	apphttp "igcommerce_backend/internal/http"
	"igcommerce_backend/internal/notification/email"
	"igcommerce_backend/internal/notification/inapp"
	"igcommerce_backend/internal/notification/outbox"
	"igcommerce_backend/platform/httpkit"
	"igcommerce_backend/platform/logger"
)

// maxDispatchAttempts bounds email retries per outbox record.
const maxDispatchAttempts = 3

// Module handles notification event subscriptions and the feed endpoints.
type Module struct {
	inapp     *inapp.Repository
	outbox    *outbox.Repository
	sender    email.Sender
	merchants catalog.Reader
	log       *logger.Logger
}

// NewModule creates the notification module. sender may be nil when email
// is disabled; outbox records are then parked as failed at dispatch time.
func NewModule(pool *pgxpool.Pool, sender email.Sender, merchants catalog.Reader, log *logger.Logger) *Module {
	return &Module{
		inapp:     inapp.NewRepository(pool),
		outbox:    outbox.New(pool),
		sender:    sender,
		merchants: merchants,
		log:       log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// Outbox exposes the outbox repository to the scheduler dispatcher.
func (m *Module) Outbox() *outbox.Repository { return m.outbox }

// Subscribe registers the module's event handlers on the bus.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.EventHandoverRequested, events.HandlerFunc(m.onHandoverRequested))
	bus.Subscribe(events.EventHandoverAccepted, events.HandlerFunc(m.onHandoverAccepted))
	bus.Subscribe(events.EventHandoverResolved, events.HandlerFunc(m.onHandoverResolved))
	bus.Subscribe(events.EventOrderCreated, events.HandlerFunc(m.onOrderCreated))
	bus.Subscribe(events.EventOutboxDue, events.HandlerFunc(m.onOutboxDue))
}

func (m *Module) onHandoverRequested(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.HandoverRequested)
	if !ok {
		return nil
	}
	merchantID, err := uuid.Parse(evt.MerchantID)
	if err != nil {
		return nil
	}

	category := "info"
	if evt.Priority == "urgent" || evt.Priority == "high" {
		category = "urgent"
	}
	resourceType := "handover"
	handoverID := evt.HandoverID
	m.record(ctx, inapp.CreateParams{
		MerchantID:   merchantID,
		Title:        "A customer needs a human agent",
		Content:      "Reason: " + strings.ReplaceAll(evt.Reason, "_", " "),
		Category:     category,
		ResourceID:   &handoverID,
		ResourceType: &resourceType,
	})

	m.enqueue(ctx, merchantID, TemplateHandoverRequested, handoverPayload{
		ConversationID: evt.ConversationID,
		Reason:         evt.Reason,
		Priority:       evt.Priority,
		TriggerMessage: evt.TriggerMessage,
	})
	return nil
}

func (m *Module) onHandoverAccepted(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.HandoverAccepted)
	if !ok {
		return nil
	}
	merchantID, err := uuid.Parse(evt.MerchantID)
	if err != nil {
		return nil
	}

	resourceType := "handover"
	handoverID := evt.HandoverID
	m.record(ctx, inapp.CreateParams{
		MerchantID:   merchantID,
		Title:        "Handover accepted",
		Content:      evt.AgentName + " took over the conversation",
		ResourceID:   &handoverID,
		ResourceType: &resourceType,
	})

	m.enqueue(ctx, merchantID, TemplateHandoverAccepted, handoverPayload{
		ConversationID: evt.ConversationID,
		AgentName:      evt.AgentName,
	})
	return nil
}

func (m *Module) onHandoverResolved(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.HandoverResolved)
	if !ok {
		return nil
	}
	merchantID, err := uuid.Parse(evt.MerchantID)
	if err != nil {
		return nil
	}

	resourceType := "handover"
	handoverID := evt.HandoverID
	m.record(ctx, inapp.CreateParams{
		MerchantID:   merchantID,
		Title:        "Conversation resolved",
		Content:      "The conversation was returned to the assistant",
		ResourceID:   &handoverID,
		ResourceType: &resourceType,
	})

	m.enqueue(ctx, merchantID, TemplateHandoverResolved, handoverPayload{
		ConversationID: evt.ConversationID,
		Resolution:     evt.Resolution,
	})
	return nil
}

func (m *Module) onOrderCreated(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.OrderCreated)
	if !ok {
		return nil
	}
	merchantID, err := uuid.Parse(evt.MerchantID)
	if err != nil {
		return nil
	}

	resourceType := "order"
	orderID := evt.OrderID
	m.record(ctx, inapp.CreateParams{
		MerchantID:   merchantID,
		Title:        "New order " + evt.OrderNumber,
		Content:      "The assistant created an order awaiting your confirmation",
		ResourceID:   &orderID,
		ResourceType: &resourceType,
	})

	m.enqueue(ctx, merchantID, TemplateOrderCreated, orderPayload{
		OrderNumber: evt.OrderNumber,
		CustomerID:  evt.CustomerID,
		Confidence:  evt.Confidence,
	})
	return nil
}

func (m *Module) record(ctx context.Context, p inapp.CreateParams) {
	if _, err := m.inapp.Create(ctx, p); err != nil {
		m.log.Error("failed to persist in-app notification",
			"merchant_id", p.MerchantID, "title", p.Title, "error", err)
	}
}

func (m *Module) enqueue(ctx context.Context, merchantID uuid.UUID, template string, payload any) {
	if _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		MerchantID: merchantID,
		Template:   template,
		Payload:    payload,
	}); err != nil {
		m.log.Error("failed to queue notification email",
			"merchant_id", merchantID, "template", template, "error", err)
	}
}

func (m *Module) onOutboxDue(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.OutboxDue)
	if !ok {
		return nil
	}
	return m.Dispatch(ctx, evt.OutboxID)
}

// Dispatch sends one claimed outbox record. Transient failures return it to
// pending until the attempt budget runs out.
func (m *Module) Dispatch(ctx context.Context, outboxID uuid.UUID) error {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}
	if rec.Status != outbox.StatusEnqueued && rec.Status != outbox.StatusPending {
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	subject, body, err := renderEmail(rec.Template, rec.Payload)
	if err != nil {
		return m.outbox.MarkFailed(ctx, rec.ID, err.Error())
	}

	merchant, err := m.merchants.MerchantByID(ctx, rec.MerchantID)
	if err != nil {
		return m.retryOrFail(ctx, rec, err.Error())
	}
	if merchant.NotifyEmail == "" {
		// Nothing to deliver to; the in-app row already covers it.
		return m.outbox.MarkSucceeded(ctx, rec.ID)
	}
	if m.sender == nil {
		return m.outbox.MarkFailed(ctx, rec.ID, "email sending is disabled")
	}

	if err := m.sender.Send(ctx, merchant.NotifyEmail, subject, body); err != nil {
		m.log.Error("notification email send failed",
			"outbox_id", rec.ID, "merchant_id", rec.MerchantID, "error", err)
		return m.retryOrFail(ctx, rec, err.Error())
	}
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) retryOrFail(ctx context.Context, rec outbox.Record, lastError string) error {
	// Attempts was already incremented by MarkProcessing.
	if rec.Attempts+1 >= maxDispatchAttempts {
		return m.outbox.MarkFailed(ctx, rec.ID, lastError)
	}
	return m.outbox.MarkPending(ctx, rec.ID, &lastError)
}

// RegisterRoutes mounts the notification feed endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications", m.list)
	ctx.Protected.PUT("/notifications/:id/read", m.markRead)
}

func (m *Module) list(c *gin.Context) {
	merchantID, ok := merchantUUID(c)
	if !ok {
		return
	}
	items, err := m.inapp.List(c.Request.Context(), merchantID, 50)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, items)
}

func (m *Module) markRead(c *gin.Context) {
	merchantID, ok := merchantUUID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification ID", nil)
		return
	}
	if httpkit.HandleError(c, m.inapp.MarkRead(c.Request.Context(), merchantID, id)) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func merchantUUID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := httpkit.MustGetMerchantID(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid merchant ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

var _ apphttp.Module = (*Module)(nil)
