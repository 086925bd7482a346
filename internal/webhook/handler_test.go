package webhook

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"igcommerce_backend/platform/logger"
)

type webhookTestConfig struct{}

func (webhookTestConfig) GetWebhookVerifyToken() string    { return "verify-me" }
func (webhookTestConfig) GetWebhookAppSecret() string      { return "app-secret" }
func (webhookTestConfig) GetWebhookProviderObject() string { return "instagram" }

func newTestRouter(t *testing.T) (*gin.Engine, *harness) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := newHarness()
	handler := NewHandler(webhookTestConfig{}, h.svc, logger.New("test"))

	r := gin.New()
	r.GET("/api/webhooks/instagram", handler.Verify)
	r.POST("/api/webhooks/instagram", handler.Receive)
	return r, h
}

func TestVerifyEchoesChallenge(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/webhooks/instagram?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "12345" {
		t.Errorf("challenge should be echoed verbatim, got %q", w.Body.String())
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []string{
		"/api/webhooks/instagram?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1",
		"/api/webhooks/instagram?hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=1",
		"/api/webhooks/instagram",
	}
	for _, url := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, w.Code)
		}
	}
}

func TestReceiveVerifiesSignatureBeforeProcessing(t *testing.T) {
	r, h := newTestRouter(t)
	body := []byte(`{"object":"instagram","entry":[{"id":"page-1","messaging":[{"sender":{"id":"cust-1"},"recipient":{"id":"page-1"},"timestamp":1,"message":{"mid":"m1","text":"hi"}}]}]}`)

	// Missing header.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/webhooks/instagram", bytes.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing signature: expected 400, got %d", w.Code)
	}

	// Bad signature.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/instagram", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign([]byte("wrong-secret"), body))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad signature: expected 400, got %d", w.Code)
	}
	if len(h.conversations.messages) != 0 {
		t.Fatal("rejected deliveries must not be processed")
	}

	// Valid signature.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/instagram", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign([]byte("app-secret"), body))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid signature: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"status":"success"}` {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if len(h.conversations.messages) == 0 {
		t.Error("accepted deliveries should be processed")
	}
}

func TestReceiveRejectsMalformedEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)
	body := []byte(`{"object":"page","entry":[]}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/instagram", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign([]byte("app-secret"), body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong object: expected 400, got %d", w.Code)
	}
}
