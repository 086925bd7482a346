// Package orders provides the orders bounded context module. It turns order
// extractions into validated, persisted orders and manages their lifecycle.
package orders

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/classifier"
	"igcommerce_backend/internal/events"
	apphttp "igcommerce_backend/internal/http"
	"igcommerce_backend/internal/orders/handler"
	"igcommerce_backend/internal/orders/repository"
	"igcommerce_backend/internal/orders/service"
	"igcommerce_backend/platform/logger"
	"igcommerce_backend/platform/validator"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the orders module.
func NewModule(pool *pgxpool.Pool, gateway classifier.Gateway, catalogs catalog.Reader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, gateway, catalogs, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the service layer for use by the webhook router.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	orders.GET("", m.handler.List)
	orders.GET("/:id", m.handler.Get)
	orders.GET("/:id/history", m.handler.History)
	orders.PUT("/:id/status", m.handler.UpdateStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
