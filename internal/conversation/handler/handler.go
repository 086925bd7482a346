// Package handler exposes the conversation and handover HTTP endpoints used by
// the merchant dashboard.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"igcommerce_backend/internal/conversation/service"
	"igcommerce_backend/internal/conversation/transport"
	"igcommerce_backend/platform/httpkit"
	"igcommerce_backend/platform/validator"
)

// Handler handles HTTP requests for conversations and handovers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid handover ID"
)

// New creates a new conversation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RequestHandover escalates a conversation to a human.
// POST /api/v1/handover/request
func (h *Handler) RequestHandover(c *gin.Context) {
	var req transport.RequestHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	hr, err := h.svc.RequestManualHandover(c.Request.Context(), req.PageID, req.CustomerID, req.Reason, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromHandover(hr))
}

// Accept claims a pending handover for the calling agent.
// PUT /api/v1/handover/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	agentID, ok := httpkit.MustGetAgentID(c)
	if !ok {
		return
	}

	var req transport.AcceptHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	hr, err := h.svc.Accept(c.Request.Context(), id, agentID, req.AgentName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromHandover(hr))
}

// SendMessage delivers an agent-authored message through an accepted handover.
// POST /api/v1/handover/:id/message
func (h *Handler) SendMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	agentID, ok := httpkit.MustGetAgentID(c)
	if !ok {
		return
	}

	var req transport.ManualMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.SendManualMessage(c.Request.Context(), id, agentID, req.Text); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "sent"})
}

// Resolve closes an accepted handover and resumes the AI.
// PUT /api/v1/handover/:id/resolve
func (h *Handler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	agentID, ok := httpkit.MustGetAgentID(c)
	if !ok {
		return
	}

	var req transport.ResolveHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Resolve(c.Request.Context(), id, agentID, req.Resolution); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "resolved"})
}

// Close marks a conversation resolved.
// PUT /api/v1/conversations/:id/close
func (h *Handler) Close(c *gin.Context) {
	err := h.svc.Close(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ConversationStatusResponse{Status: "resolved"})
}

// AIStatus reports whether the AI is paused on a conversation.
// GET /api/v1/conversation/:id/ai-status
func (h *Handler) AIStatus(c *gin.Context) {
	paused, err := h.svc.IsAIPaused(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AIStatusResponse{AIPaused: paused})
}

// ListActive lists pending handovers for the calling merchant.
// GET /api/v1/handover/active
func (h *Handler) ListActive(c *gin.Context) {
	merchantID, ok := mustMerchantUUID(c)
	if !ok {
		return
	}

	hrs, err := h.svc.ListPending(c.Request.Context(), merchantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromHandovers(hrs))
}

// ListLive lists conversations currently off AI control.
// GET /api/v1/conversations/live
func (h *Handler) ListLive(c *gin.Context) {
	merchantID, ok := mustMerchantUUID(c)
	if !ok {
		return
	}

	convs, err := h.svc.ListLive(c.Request.Context(), merchantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromConversations(convs))
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
