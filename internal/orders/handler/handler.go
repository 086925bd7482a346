// Package handler exposes the orders HTTP endpoints used by the merchant
// dashboard.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"igcommerce_backend/internal/orders/service"
	"igcommerce_backend/internal/orders/transport"
	"igcommerce_backend/platform/httpkit"
	"igcommerce_backend/platform/validator"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid order ID"
)

// New creates a new orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the merchant's orders.
// GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	merchantID, ok := mustMerchantUUID(c)
	if !ok {
		return
	}

	orders, err := h.svc.List(c.Request.Context(), merchantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromOrders(orders))
}

// Get returns one order with its items.
// GET /api/v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	merchantID, ok := mustMerchantUUID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), merchantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromOrder(order))
}

// History returns the order's status log.
// GET /api/v1/orders/:id/history
func (h *Handler) History(c *gin.Context) {
	merchantID, ok := mustMerchantUUID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	history, err := h.svc.History(c.Request.Context(), merchantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromHistory(history))
}

// UpdateStatus advances an order along its lifecycle.
// PUT /api/v1/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	merchantID, ok := mustMerchantUUID(c)
	if !ok {
		return
	}
	agentID, ok := httpkit.MustGetAgentID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), merchantID, id, req.Status, agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromOrder(order))
}

func mustMerchantUUID(c *gin.Context) (uuid.UUID, bool) {
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
