package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/logger"
)

// maxBodyBytes caps webhook payloads well above anything the provider sends.
const maxBodyBytes = 1 << 20

// Handler exposes the provider webhook endpoints.
type Handler struct {
	cfg config.WebhookConfig
	svc *Service
	log *logger.Logger
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(cfg config.WebhookConfig, svc *Service, log *logger.Logger) *Handler {
	return &Handler{cfg: cfg, svc: svc, log: log}
}

// Verify answers the provider's subscription challenge.
// GET /api/webhooks/instagram
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token == "" || token != h.cfg.GetWebhookVerifyToken() {
		c.String(http.StatusBadRequest, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive accepts a webhook delivery. The raw body is read before any
// decoding because the signature covers the exact bytes on the wire.
// POST /api/webhooks/instagram
func (h *Handler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Hub-Signature-256")
	if !VerifySignature([]byte(h.cfg.GetWebhookAppSecret()), rawBody, signature) {
		h.log.Warn("webhook signature rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	events, err := Parse(rawBody, h.cfg.GetWebhookProviderObject())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	h.svc.Process(c.Request.Context(), events)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
