package webhook

import (
	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/classifier"
	apphttp "igcommerce_backend/internal/http"
	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/logger"
)

// Module is the webhook ingestion module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the webhook handler and processing service.
func NewModule(cfg config.WebhookConfig, merchants catalog.Reader, conversations ConversationGateway, orders OrderPipeline, gateway classifier.Gateway, transcriber VoiceTranscriber, sender Sender, log *logger.Logger) *Module {
	svc := NewService(merchants, conversations, orders, gateway, transcriber, sender, log)
	return &Module{handler: NewHandler(cfg, svc, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the webhook endpoints. They sit outside the v1 API:
// the provider signs requests instead of carrying agent headers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.GET("/api/webhooks/instagram", m.handler.Verify)
	ctx.Engine.POST("/api/webhooks/instagram", m.handler.Receive)
}

var _ apphttp.Module = (*Module)(nil)
