package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"igcommerce_backend/platform/logger"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetGraphBaseURL() string           { return c.baseURL }
func (c testConfig) GetGraphAPIVersion() string        { return "v18.0" }
func (c testConfig) GetDeliveryTimeout() time.Duration { return 2 * time.Second }
func (c testConfig) GetMessagingWindow() time.Duration { return 24 * time.Hour }
func (c testConfig) GetPageTokenEnvPrefix() string     { return "TEST_PAGE_TOKEN_" }

type graphServer struct {
	*httptest.Server
	requests int
	lastText string
	status   int
}

func newGraphServer(t *testing.T) *graphServer {
	t.Helper()
	gs := &graphServer{status: http.StatusOK}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gs.requests++
		var payload struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gs.lastText = payload.Message.Text

		w.WriteHeader(gs.status)
		if gs.status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"recipient_id": "cust-1",
				"message_id":   "mid.123",
			})
		}
	}))
	t.Cleanup(gs.Close)
	return gs
}

func setupCoordinator(t *testing.T, gs *graphServer) (*Coordinator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig{baseURL: gs.URL}
	tracker := NewWindowTracker(client, cfg.GetMessagingWindow())
	coordinator := New(cfg, NewEnvTokenSource(cfg.GetPageTokenEnvPrefix()), tracker, logger.New("test"))
	return coordinator, mr
}

const validTestToken = "EAAB1234567890abcdef"

func TestSendDeliversWithinOpenWindow(t *testing.T) {
	gs := newGraphServer(t)
	c, _ := setupCoordinator(t, gs)
	t.Setenv("TEST_PAGE_TOKEN_page-1", validTestToken)
	ctx := context.Background()

	c.MarkInbound(ctx, "page-1", "cust-1")
	result := c.Send(ctx, "page-1", "cust-1", "your order is confirmed")

	if result.Outcome != OutcomeSent {
		t.Fatalf("expected sent, got %s", result.Outcome)
	}
	if result.MessageID != "mid.123" {
		t.Errorf("expected provider message id, got %q", result.MessageID)
	}
	if gs.requests != 1 {
		t.Errorf("expected exactly one attempt, got %d", gs.requests)
	}
}

func TestSendRefusesWithoutCredential(t *testing.T) {
	gs := newGraphServer(t)
	c, _ := setupCoordinator(t, gs)
	ctx := context.Background()

	c.MarkInbound(ctx, "page-1", "cust-1")
	result := c.Send(ctx, "page-1", "cust-1", "hello")

	if result.Outcome != OutcomeNoCredential {
		t.Fatalf("expected no_credential, got %s", result.Outcome)
	}
	if gs.requests != 0 {
		t.Errorf("credential failures must never reach the provider, got %d attempts", gs.requests)
	}
}

func TestSendRefusesMalformedCredential(t *testing.T) {
	gs := newGraphServer(t)
	c, _ := setupCoordinator(t, gs)
	t.Setenv("TEST_PAGE_TOKEN_page-1", "short")
	ctx := context.Background()

	c.MarkInbound(ctx, "page-1", "cust-1")
	result := c.Send(ctx, "page-1", "cust-1", "hello")

	if result.Outcome != OutcomeInvalidCredential {
		t.Fatalf("expected invalid_credential, got %s", result.Outcome)
	}
	if gs.requests != 0 {
		t.Errorf("credential failures must never reach the provider, got %d attempts", gs.requests)
	}
}

func TestSendRefusesWhenWindowClosed(t *testing.T) {
	gs := newGraphServer(t)
	c, mr := setupCoordinator(t, gs)
	t.Setenv("TEST_PAGE_TOKEN_page-1", validTestToken)
	ctx := context.Background()

	c.MarkInbound(ctx, "page-1", "cust-1")
	mr.FastForward(25 * time.Hour)

	result := c.Send(ctx, "page-1", "cust-1", "hello")
	if result.Outcome != OutcomeWindowClosed {
		t.Fatalf("expected window_closed after TTL expiry, got %s", result.Outcome)
	}
	if gs.requests != 0 {
		t.Errorf("closed windows must never reach the provider, got %d attempts", gs.requests)
	}
}

func TestSendMapsProviderStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   Outcome
	}{
		{http.StatusTooManyRequests, OutcomeRateLimited},
		{http.StatusForbidden, OutcomeForbidden},
		{http.StatusBadRequest, OutcomeBadRequest},
		{http.StatusBadGateway, OutcomeFailed},
	}

	for _, tt := range tests {
		gs := newGraphServer(t)
		gs.status = tt.status
		c, _ := setupCoordinator(t, gs)
		t.Setenv("TEST_PAGE_TOKEN_page-1", validTestToken)
		ctx := context.Background()

		c.MarkInbound(ctx, "page-1", "cust-1")
		result := c.Send(ctx, "page-1", "cust-1", "hello")
		if result.Outcome != tt.want {
			t.Errorf("status %d: expected %s, got %s", tt.status, tt.want, result.Outcome)
		}
	}
}

func TestSendFallbackLocalizes(t *testing.T) {
	gs := newGraphServer(t)
	c, _ := setupCoordinator(t, gs)
	t.Setenv("TEST_PAGE_TOKEN_page-1", validTestToken)
	ctx := context.Background()

	c.MarkInbound(ctx, "page-1", "cust-1")
	c.SendFallback(ctx, "page-1", "cust-1", "ar")

	if gs.requests != 1 {
		t.Fatalf("fallback is a single attempt, got %d", gs.requests)
	}
	if gs.lastText != fallbackMessages["ar"] {
		t.Errorf("expected arabic fallback, got %q", gs.lastText)
	}

	c.SendFallback(ctx, "page-1", "cust-1", "fr")
	if gs.lastText != fallbackMessages["en"] {
		t.Errorf("unknown languages fall back to english, got %q", gs.lastText)
	}
}

func TestTextSenderMapsOutcomes(t *testing.T) {
	gs := newGraphServer(t)
	c, mr := setupCoordinator(t, gs)
	t.Setenv("TEST_PAGE_TOKEN_page-1", validTestToken)
	sender := NewTextSender(c)
	ctx := context.Background()

	c.MarkInbound(ctx, "page-1", "cust-1")
	if err := sender.SendText(ctx, "page-1", "cust-1", "hello"); err != nil {
		t.Fatalf("open window send should succeed, got %v", err)
	}

	mr.FastForward(25 * time.Hour)
	if err := sender.SendText(ctx, "page-1", "cust-1", "hello"); err == nil {
		t.Fatal("closed window should surface an error")
	}
}
