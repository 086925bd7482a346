package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"igcommerce_backend/internal/conversation/domain"
	"igcommerce_backend/internal/conversation/repository"
	"igcommerce_backend/internal/events"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
)

type fakeRepo struct {
	conversations map[string]repository.Conversation
	handovers     map[uuid.UUID]repository.HandoverRequest
	messages      []repository.Message
	// failCAS makes the next n UpdateState calls report a lost race.
	failCAS int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		conversations: map[string]repository.Conversation{},
		handovers:     map[uuid.UUID]repository.HandoverRequest{},
	}
}

func (f *fakeRepo) Ensure(_ context.Context, conv repository.Conversation) (repository.Conversation, error) {
	if existing, ok := f.conversations[conv.ID]; ok {
		if existing.State == domain.StateResolved {
			existing.State = domain.StateAIActive
			existing.Version++
			f.conversations[conv.ID] = existing
		}
		return existing, nil
	}
	conv.State = domain.StateAIActive
	conv.Version = 1
	f.conversations[conv.ID] = conv
	return conv, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (repository.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return repository.Conversation{}, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (f *fakeRepo) UpdateState(_ context.Context, id, newState string, version int64) (bool, error) {
	if f.failCAS > 0 {
		f.failCAS--
		return false, nil
	}
	conv, ok := f.conversations[id]
	if !ok || conv.Version != version {
		return false, nil
	}
	conv.State = newState
	conv.Version++
	f.conversations[id] = conv
	return true, nil
}

func (f *fakeRepo) TouchCustomerActivity(context.Context, string, time.Time) error { return nil }

func (f *fakeRepo) ListLive(_ context.Context, merchantID uuid.UUID) ([]repository.Conversation, error) {
	var out []repository.Conversation
	for _, c := range f.conversations {
		if c.MerchantID == merchantID && c.State != domain.StateAIActive && c.State != domain.StateResolved {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) AddMessage(_ context.Context, msg repository.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeRepo) RecentMessages(context.Context, string, int) ([]repository.Message, error) {
	return f.messages, nil
}

func (f *fakeRepo) Create(_ context.Context, hr repository.HandoverRequest) error {
	f.handovers[hr.ID] = hr
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.HandoverRequest, error) {
	hr, ok := f.handovers[id]
	if !ok {
		return repository.HandoverRequest{}, apperr.NotFound("handover request not found")
	}
	return hr, nil
}

func (f *fakeRepo) HasOpen(_ context.Context, conversationID string) (bool, error) {
	for _, hr := range f.handovers {
		if hr.ConversationID == conversationID &&
			(hr.Status == domain.HandoverPending || hr.Status == domain.HandoverAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Accept(_ context.Context, id uuid.UUID, agentID, agentName string, at time.Time) (bool, error) {
	hr, ok := f.handovers[id]
	if !ok || hr.Status != domain.HandoverPending {
		return false, nil
	}
	hr.Status = domain.HandoverAccepted
	hr.AgentID = &agentID
	hr.AgentName = &agentName
	hr.AcceptedAt = &at
	f.handovers[id] = hr
	return true, nil
}

func (f *fakeRepo) Resolve(_ context.Context, id uuid.UUID, resolution string, at time.Time) (bool, error) {
	hr, ok := f.handovers[id]
	if !ok || hr.Status != domain.HandoverAccepted {
		return false, nil
	}
	hr.Status = domain.HandoverResolved
	if resolution != "" {
		hr.Resolution = &resolution
	}
	hr.ResolvedAt = &at
	f.handovers[id] = hr
	return true, nil
}

func (f *fakeRepo) ExpirePending(_ context.Context, cutoff time.Time) ([]repository.HandoverRequest, error) {
	var out []repository.HandoverRequest
	for id, hr := range f.handovers {
		if hr.Status == domain.HandoverPending && hr.RequestedAt.Before(cutoff) {
			hr.Status = domain.HandoverTimedOut
			f.handovers[id] = hr
			out = append(out, hr)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPending(_ context.Context, merchantID uuid.UUID) ([]repository.HandoverRequest, error) {
	var out []repository.HandoverRequest
	for _, hr := range f.handovers {
		if hr.MerchantID == merchantID && hr.Status == domain.HandoverPending {
			out = append(out, hr)
		}
	}
	return out, nil
}

type fakeDeliverer struct {
	sent []string
	err  error
}

func (f *fakeDeliverer) SendText(_ context.Context, _, _, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type fakeMerchants struct{ id uuid.UUID }

func (f fakeMerchants) MerchantID(context.Context, string) (uuid.UUID, error) {
	return f.id, nil
}

func setup(t *testing.T) (*Service, *fakeRepo, *fakeDeliverer, repository.Conversation) {
	t.Helper()
	repo := newFakeRepo()
	deliverer := &fakeDeliverer{}
	log := logger.New("test")

	merchantID := uuid.New()
	svc := New(repo, events.NewInMemoryBus(log), deliverer, fakeMerchants{id: merchantID}, log)
	conv, err := svc.Ensure(context.Background(), repository.Conversation{
		ID:         ConversationKey(merchantID, "cust-1"),
		MerchantID: merchantID,
		CustomerID: "cust-1",
		PageID:     "page-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, repo, deliverer, conv
}

func TestRequestHandoverPausesAI(t *testing.T) {
	svc, _, _, conv := setup(t)
	ctx := context.Background()

	hr, err := svc.RequestHandover(ctx, conv.ID, domain.ReasonNegativeSentiment, "this is terrible", -0.6)
	if err != nil {
		t.Fatal(err)
	}
	if hr.Priority != domain.PriorityHigh {
		t.Errorf("expected high priority for sentiment -0.6, got %q", hr.Priority)
	}

	paused, err := svc.IsAIPaused(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !paused {
		t.Error("AI must be paused immediately after a handover request")
	}
}

func TestRequestHandoverDeduplicates(t *testing.T) {
	svc, _, _, conv := setup(t)
	ctx := context.Background()

	if _, err := svc.RequestHandover(ctx, conv.ID, domain.ReasonComplexIssue, "help", 0); err != nil {
		t.Fatal(err)
	}
	_, err := svc.RequestHandover(ctx, conv.ID, domain.ReasonComplexIssue, "help again", 0)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second request should conflict, got %v", err)
	}
}

func TestRequestHandoverRejectsUnknownReason(t *testing.T) {
	svc, _, _, conv := setup(t)

	_, err := svc.RequestHandover(context.Background(), conv.ID, "felt like it", "", 0)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCloseResolvesConversation(t *testing.T) {
	svc, repo, _, conv := setup(t)
	ctx := context.Background()

	if err := svc.Close(ctx, conv.ID); err != nil {
		t.Fatal(err)
	}
	if repo.conversations[conv.ID].State != domain.StateResolved {
		t.Fatalf("closed conversation should be resolved, got %q", repo.conversations[conv.ID].State)
	}

	// Closing again is a no-op, not an error.
	if err := svc.Close(ctx, conv.ID); err != nil {
		t.Fatalf("repeated close should converge, got %v", err)
	}

	live, err := svc.ListLive(ctx, conv.MerchantID)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 0 {
		t.Errorf("resolved conversations are not live, got %d", len(live))
	}

	// The customer writing again reopens the conversation for the AI.
	reopened, err := svc.Ensure(ctx, repository.Conversation{
		ID:         conv.ID,
		MerchantID: conv.MerchantID,
		CustomerID: conv.CustomerID,
		PageID:     conv.PageID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if reopened.State != domain.StateAIActive {
		t.Errorf("a new customer message should reopen as ai_active, got %q", reopened.State)
	}
}

func TestCloseRejectsOpenHandover(t *testing.T) {
	svc, repo, _, conv := setup(t)
	ctx := context.Background()

	if _, err := svc.RequestHandover(ctx, conv.ID, domain.ReasonComplexIssue, "help", 0); err != nil {
		t.Fatal(err)
	}
	err := svc.Close(ctx, conv.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("closing over an open handover should conflict, got %v", err)
	}
	if repo.conversations[conv.ID].State != domain.StateHandoverPending {
		t.Errorf("conversation state must be untouched, got %q", repo.conversations[conv.ID].State)
	}
}

func TestAcceptIsExclusive(t *testing.T) {
	svc, _, _, conv := setup(t)
	ctx := context.Background()

	hr, err := svc.RequestHandover(ctx, conv.ID, domain.ReasonManualRequest, "", 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Accept(ctx, hr.ID, "agent-1", "Dana"); err != nil {
		t.Fatal(err)
	}
	_, err = svc.Accept(ctx, hr.ID, "agent-2", "Sami")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second accept should conflict, got %v", err)
	}

	got, _ := svc.Get(ctx, conv.ID)
	if got.State != domain.StateHumanActive {
		t.Errorf("conversation should be human_active, got %q", got.State)
	}
}

func TestManualMessageRequiresOwningAgent(t *testing.T) {
	svc, repo, deliverer, conv := setup(t)
	ctx := context.Background()

	hr, _ := svc.RequestHandover(ctx, conv.ID, domain.ReasonManualRequest, "", 0)
	if _, err := svc.Accept(ctx, hr.ID, "agent-1", "Dana"); err != nil {
		t.Fatal(err)
	}

	if err := svc.SendManualMessage(ctx, hr.ID, "agent-2", "hi"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("foreign agent should be forbidden, got %v", err)
	}

	if err := svc.SendManualMessage(ctx, hr.ID, "agent-1", "hi there"); err != nil {
		t.Fatal(err)
	}
	if len(deliverer.sent) != 1 || deliverer.sent[0] != "hi there" {
		t.Errorf("message should be delivered, got %v", deliverer.sent)
	}
	if len(repo.messages) != 1 || repo.messages[0].Sender != repository.SenderAgent {
		t.Errorf("message should be stored with agent sender, got %+v", repo.messages)
	}
}

func TestResolveReturnsConversationToAI(t *testing.T) {
	svc, _, _, conv := setup(t)
	ctx := context.Background()

	hr, _ := svc.RequestHandover(ctx, conv.ID, domain.ReasonComplexIssue, "", 0)
	if _, err := svc.Accept(ctx, hr.ID, "agent-1", "Dana"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Resolve(ctx, hr.ID, "agent-1", "answered sizing question"); err != nil {
		t.Fatal(err)
	}

	paused, _ := svc.IsAIPaused(ctx, conv.ID)
	if paused {
		t.Error("AI should resume after resolution")
	}

	if err := svc.Resolve(ctx, hr.ID, "agent-1", ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("double resolve should conflict, got %v", err)
	}
}

func TestExpireStaleReleasesConversation(t *testing.T) {
	svc, repo, _, conv := setup(t)
	ctx := context.Background()

	hr, _ := svc.RequestHandover(ctx, conv.ID, domain.ReasonNegativeSentiment, "", -0.9)
	// Age the request past the timeout.
	aged := repo.handovers[hr.ID]
	aged.RequestedAt = time.Now().UTC().Add(-time.Hour)
	repo.handovers[hr.ID] = aged

	n, err := svc.ExpireStale(ctx, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired request, got %d", n)
	}

	got, _ := svc.Get(ctx, conv.ID)
	if got.State != domain.StateAIActive {
		t.Errorf("conversation should return to ai_active, got %q", got.State)
	}
	if repo.handovers[hr.ID].Status != domain.HandoverTimedOut {
		t.Errorf("request should be timeout, got %q", repo.handovers[hr.ID].Status)
	}
}

func TestTransitionRetriesLostRaces(t *testing.T) {
	svc, repo, _, conv := setup(t)
	repo.failCAS = 2

	if _, err := svc.RequestHandover(context.Background(), conv.ID, domain.ReasonComplexIssue, "", 0); err != nil {
		t.Fatalf("transition should succeed within retry budget, got %v", err)
	}
}

func TestRequestManualHandoverCreatesConversation(t *testing.T) {
	svc, repo, _, _ := setup(t)
	ctx := context.Background()

	hr, err := svc.RequestManualHandover(ctx, "page-9", "new-customer", domain.ReasonManualRequest, "please take over")
	if err != nil {
		t.Fatal(err)
	}
	if hr.Priority != domain.PriorityMedium {
		t.Errorf("manual requests should be medium priority, got %q", hr.Priority)
	}
	conv, ok := repo.conversations[hr.ConversationID]
	if !ok {
		t.Fatal("conversation should be created on the fly")
	}
	if conv.State != domain.StateHandoverPending {
		t.Errorf("conversation should be handover_pending, got %q", conv.State)
	}
}

func TestIsAIPausedUnknownConversation(t *testing.T) {
	svc, _, _, _ := setup(t)

	paused, err := svc.IsAIPaused(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if paused {
		t.Error("unknown conversation should not pause the AI")
	}
}
