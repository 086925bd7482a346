package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"igcommerce_backend/platform/logger"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty defaults to english", "", LanguageEnglish},
		{"plain english", "I want to order two pairs of red shoes", LanguageEnglish},
		{"plain arabic", "أريد حذاء أحمر من فضلك", LanguageArabic},
		{"mixed script", "أريد red shoes please حجم كبير", LanguageMixed},
		{"digits only", "12345 67890", LanguageMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"markdown fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose around", `Sure, here you go: {"a":{"b":2}} hope that helps`, `{"a":{"b":2}}`, false},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, false},
		{"no object", "sorry, I cannot do that", "", true},
		{"unterminated", `{"a":1`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractJSON(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseSentimentNormalizes(t *testing.T) {
	raw := `{"overall":"furious","confidence":1.7,"emotions":{"anger":-0.2},"intensity":"extreme"}`
	s, err := parseSentiment(raw)
	if err != nil {
		t.Fatal(err)
	}
	if s.Overall != SentimentNeutral {
		t.Errorf("unknown overall should default to neutral, got %q", s.Overall)
	}
	if s.Intensity != IntensityLow {
		t.Errorf("unknown intensity should default to low, got %q", s.Intensity)
	}
	if s.Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %v", s.Confidence)
	}
	if s.Emotions.Anger != 0 {
		t.Errorf("negative emotion score should clamp to 0, got %v", s.Emotions.Anger)
	}
}

func TestParseIntentUnknownPrimary(t *testing.T) {
	in, err := parseIntent(`{"primary":"buy_everything","confidence":0.9}`)
	if err != nil {
		t.Fatal(err)
	}
	if in.Primary != IntentOther {
		t.Errorf("unknown intent should map to other, got %q", in.Primary)
	}
	if in.Entities == nil || in.SubIntents == nil {
		t.Error("nil slices should be normalized to empty")
	}
}

func TestParseExtractionDefaults(t *testing.T) {
	raw := `{"intent":"something_else","confidence":0.5,"products":[{"name":"shoes","quantity":0},{"name":"bag","quantity":-2}]}`
	ex, err := parseExtraction(raw)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Intent != ExtractionOrderInquiry {
		t.Errorf("unknown extraction intent should default to order_inquiry, got %q", ex.Intent)
	}
	if ex.Products[0].Quantity != 0 {
		t.Errorf("zero quantity must survive parsing so it can be asked about, got %d", ex.Products[0].Quantity)
	}
	if ex.Products[1].Quantity != 0 {
		t.Errorf("negative quantity should clamp to 0, got %d", ex.Products[1].Quantity)
	}
	if ex.MissingFields == nil {
		t.Error("missingFields should be normalized to empty slice")
	}
}

func TestShouldRequestHandover(t *testing.T) {
	tests := []struct {
		name string
		s    Sentiment
		want bool
	}{
		{
			"high anger alone",
			Sentiment{Overall: SentimentNeutral, Emotions: Emotions{Anger: 0.75}},
			true,
		},
		{
			"negative high intensity",
			Sentiment{Overall: SentimentNegative, Intensity: IntensityHigh},
			true,
		},
		{
			"oracle flag",
			Sentiment{Overall: SentimentNeutral, RequiresHumanHandover: true},
			true,
		},
		{
			"two strong negative emotions",
			Sentiment{Overall: SentimentNeutral, Emotions: Emotions{Sadness: 0.6, Fear: 0.55}},
			true,
		},
		{
			"one strong negative emotion",
			Sentiment{Overall: SentimentNeutral, Emotions: Emotions{Sadness: 0.6}},
			false,
		},
		{
			"negative but low intensity",
			Sentiment{Overall: SentimentNegative, Intensity: IntensityLow},
			false,
		},
		{
			"calm positive",
			Sentiment{Overall: SentimentPositive, Intensity: IntensityMedium, Emotions: Emotions{Joy: 0.9}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRequestHandover(tt.s); got != tt.want {
				t.Errorf("ShouldRequestHandover() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeBackend struct {
	response string
	err      error
	lastReq  completion
}

func (f *fakeBackend) Complete(_ context.Context, req completion) (string, int, error) {
	f.lastReq = req
	if f.err != nil {
		return "", 0, f.err
	}
	return f.response, 42, nil
}

func TestAnalyzeSentimentFallsBackOnError(t *testing.T) {
	svc := newServiceWithBackend(&fakeBackend{err: errors.New("upstream down")}, logger.New("test"))

	s, err := svc.AnalyzeSentiment(context.Background(), "hello", LanguageEnglish)
	if err != nil {
		t.Fatalf("expected degraded result, got error %v", err)
	}
	if s.Overall != SentimentNeutral || s.Confidence != 0.3 {
		t.Errorf("expected neutral default at 0.3 confidence, got %+v", s)
	}
}

func TestClassifyIntentFallsBackOnGarbage(t *testing.T) {
	svc := newServiceWithBackend(&fakeBackend{response: "not json at all"}, logger.New("test"))

	in, err := svc.ClassifyIntent(context.Background(), "hello", LanguageEnglish)
	if err != nil {
		t.Fatalf("expected degraded result, got error %v", err)
	}
	if in.Primary != IntentOther || in.Confidence != 0.3 {
		t.Errorf("expected default intent, got %+v", in)
	}
}

func TestExtractOrderPropagatesError(t *testing.T) {
	svc := newServiceWithBackend(&fakeBackend{err: errors.New("upstream down")}, logger.New("test"))

	_, err := svc.ExtractOrder(context.Background(), ExtractRequest{MessageText: "two shoes"})
	if err == nil {
		t.Fatal("extraction must not fabricate a result on oracle failure")
	}
}

func TestExtractOrderUsesAnalysisTemperatureAndJSONMode(t *testing.T) {
	fb := &fakeBackend{response: `{"intent":"order_placement","confidence":0.9,"products":[]}`}
	svc := newServiceWithBackend(fb, logger.New("test"))

	ex, err := svc.ExtractOrder(context.Background(), ExtractRequest{
		MessageText:  "I want two red shoes",
		BusinessName: "Shoe Palace",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ex.Intent != ExtractionOrderPlacement {
		t.Errorf("unexpected intent %q", ex.Intent)
	}
	if fb.lastReq.Temperature != analysisTemperature {
		t.Errorf("extraction should use analysis temperature, got %v", fb.lastReq.Temperature)
	}
	if !fb.lastReq.JSONMode {
		t.Error("extraction should request JSON mode")
	}
}

func TestGenerateReplyUsesCreativeTemperature(t *testing.T) {
	fb := &fakeBackend{response: "Hello! How can I help you today?"}
	svc := newServiceWithBackend(fb, logger.New("test"))

	reply, err := svc.GenerateReply(context.Background(), ReplyRequest{
		MessageText: "hi",
		Language:    LanguageEnglish,
		Sentiment:   DefaultSentiment(),
		Intent:      DefaultIntent(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text == "" || reply.TokensUsed != 42 {
		t.Errorf("unexpected reply %+v", reply)
	}
	if fb.lastReq.Temperature != replyTemperature {
		t.Errorf("reply should use creative temperature, got %v", fb.lastReq.Temperature)
	}
	if fb.lastReq.JSONMode {
		t.Error("reply should not request JSON mode")
	}
}

func TestOpenAIBackendComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["model"] != "test-model" {
			t.Errorf("unexpected model %v", payload["model"])
		}
		if _, ok := payload["response_format"]; !ok {
			t.Error("expected response_format for JSON mode")
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"ok":true}`}},
			},
			"usage": map[string]int{"total_tokens": 17},
		})
	}))
	defer srv.Close()

	b := NewOpenAIBackend(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	text, tokens, err := b.Complete(context.Background(), completion{
		System:      "system",
		User:        "user",
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"ok":true}` {
		t.Errorf("unexpected text %q", text)
	}
	if tokens != 17 {
		t.Errorf("unexpected token count %d", tokens)
	}
}

func TestOpenAIBackendEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	b := NewOpenAIBackend(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, _, err := b.Complete(context.Background(), completion{User: "hi"}); err == nil {
		t.Fatal("expected error on empty choices")
	}
}
