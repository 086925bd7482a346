package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/logger"
)

// Per-page send budget. The provider enforces its own limits; this keeps a
// single busy page from monopolizing the worker before the provider does.
const (
	pageSendRate  = rate.Limit(5)
	pageSendBurst = 10
)

// Coordinator validates credentials and the messaging window before
// attempting delivery, and maps provider responses to typed outcomes.
type Coordinator struct {
	cfg    config.DeliveryConfig
	tokens TokenSource
	window *WindowTracker
	client *http.Client
	log    *logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a delivery coordinator.
func New(cfg config.DeliveryConfig, tokens TokenSource, window *WindowTracker, log *logger.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		tokens:   tokens,
		window:   window,
		client:   &http.Client{Timeout: cfg.GetDeliveryTimeout()},
		log:      log,
		limiters: map[string]*rate.Limiter{},
	}
}

// MarkInbound records an inbound message so the messaging window stays open
// for the recipient.
func (c *Coordinator) MarkInbound(ctx context.Context, pageID, recipientID string) {
	if err := c.window.MarkInbound(ctx, pageID, recipientID); err != nil {
		c.log.Error("failed to stamp messaging window",
			"page_id", pageID, "recipient_id", recipientID, "error", err)
	}
}

// Send delivers one text message to a recipient. Credential and window
// problems short-circuit before any network attempt; transport-level
// failures come back as typed outcomes, never as errors.
func (c *Coordinator) Send(ctx context.Context, pageID, recipientID, text string) Result {
	token := c.tokens.PageToken(pageID)
	if token == "" {
		c.log.DeliveryOutcome(pageID, recipientID, string(OutcomeNoCredential))
		return Result{Outcome: OutcomeNoCredential}
	}
	if !validToken(token) {
		c.log.DeliveryOutcome(pageID, recipientID, string(OutcomeInvalidCredential))
		return Result{Outcome: OutcomeInvalidCredential}
	}
	if !c.window.IsOpen(ctx, pageID, recipientID) {
		c.log.DeliveryOutcome(pageID, recipientID, string(OutcomeWindowClosed))
		return Result{Outcome: OutcomeWindowClosed}
	}
	if !c.limiter(pageID).Allow() {
		c.log.DeliveryOutcome(pageID, recipientID, string(OutcomeRateLimited))
		return Result{Outcome: OutcomeRateLimited}
	}

	result := c.post(ctx, token, recipientID, text)
	c.log.DeliveryOutcome(pageID, recipientID, string(result.Outcome))
	return result
}

func (c *Coordinator) limiter(pageID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[pageID]
	if !ok {
		l = rate.NewLimiter(pageSendRate, pageSendBurst)
		c.limiters[pageID] = l
	}
	return l
}

type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
	Error       *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Coordinator) post(ctx context.Context, token, recipientID, text string) Result {
	var payload sendRequest
	payload.Recipient.ID = recipientID
	payload.Message.Text = text

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Outcome: OutcomeFailed}
	}

	url := fmt.Sprintf("%s/%s/me/messages?access_token=%s",
		c.cfg.GetGraphBaseURL(), c.cfg.GetGraphAPIVersion(), token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeFailed}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("graph send failed", "error", err)
		return Result{Outcome: OutcomeFailed}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{Outcome: OutcomeRateLimited}
	case resp.StatusCode == http.StatusForbidden:
		return Result{Outcome: OutcomeForbidden}
	case resp.StatusCode == http.StatusBadRequest:
		return Result{Outcome: OutcomeBadRequest}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.log.Error("graph send rejected", "status", resp.StatusCode)
		return Result{Outcome: OutcomeFailed}
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Provider accepted it; a missing message id is not worth failing over.
		return Result{Outcome: OutcomeSent}
	}
	return Result{Outcome: OutcomeSent, MessageID: out.MessageID}
}

var fallbackMessages = map[string]string{
	"en": "Sorry, something went wrong on our side. Please try again in a moment.",
	"ar": "عذراً، حدث خطأ من جهتنا. الرجاء المحاولة مرة أخرى بعد قليل.",
}

// SendFallback sends one localized acknowledgement when the normal reply
// path failed. A single attempt only: if this also fails it is logged and
// dropped rather than retried.
func (c *Coordinator) SendFallback(ctx context.Context, pageID, recipientID, language string) {
	text, ok := fallbackMessages[language]
	if !ok {
		text = fallbackMessages["en"]
	}
	result := c.Send(ctx, pageID, recipientID, text)
	if !result.Delivered() {
		c.log.Error("fallback acknowledgement not delivered",
			"page_id", pageID, "recipient_id", recipientID, "outcome", string(result.Outcome))
	}
}
