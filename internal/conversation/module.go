// Package conversation provides the conversation bounded context module.
// It owns the AI/human control state machine and the handover workflow.
package conversation

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/internal/conversation/handler"
	"igcommerce_backend/internal/conversation/repository"
	"igcommerce_backend/internal/conversation/service"
	"igcommerce_backend/internal/events"
	apphttp "igcommerce_backend/internal/http"
	"igcommerce_backend/platform/logger"
	"igcommerce_backend/platform/validator"
)

// Module is the conversation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the conversation module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, deliverer service.Deliverer, merchants service.MerchantResolver, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, deliverer, merchants, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversation"
}

// Service returns the service layer for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts conversation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	handover := ctx.Protected.Group("/handover")
	handover.POST("/request", m.handler.RequestHandover)
	handover.PUT("/:id/accept", m.handler.Accept)
	handover.POST("/:id/message", m.handler.SendMessage)
	handover.PUT("/:id/resolve", m.handler.Resolve)
	handover.GET("/active", m.handler.ListActive)

	ctx.Protected.GET("/conversation/:id/ai-status", m.handler.AIStatus)
	ctx.Protected.GET("/conversations/live", m.handler.ListLive)
	ctx.Protected.PUT("/conversations/:id/close", m.handler.Close)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
