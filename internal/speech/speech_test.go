package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
)

type fakeTranscriber struct {
	calls  int
	result Transcription
	err    error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string, string) (Transcription, error) {
	f.calls++
	return f.result, f.err
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (f *fakeArchiver) Archive(_ context.Context, key string, _ []byte, _ string) error {
	f.keys = append(f.keys, key)
	return f.err
}

func audioServer(t *testing.T, contentType string, body []byte, declaredSize int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(declaredSize))
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func voiceMerchant() catalog.Merchant {
	return catalog.Merchant{ID: uuid.New(), PageID: "page-1", VoiceEnabled: true}
}

func TestProcessTranscribesAndArchives(t *testing.T) {
	clip := []byte("fake-ogg-bytes")
	srv := audioServer(t, "audio/ogg", clip, len(clip))
	tr := &fakeTranscriber{result: Transcription{Text: "I want red shoes", Confidence: 0.92, Language: "en"}}
	ar := &fakeArchiver{}
	svc := NewService(tr, ar, logger.New("test"))

	got, err := svc.Process(context.Background(), voiceMerchant(), srv.URL+"/clip.ogg", "auto")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "I want red shoes" {
		t.Errorf("unexpected transcript %q", got.Text)
	}
	if len(ar.keys) != 1 {
		t.Fatalf("clip should be archived once, got %v", ar.keys)
	}
	if tr.calls != 1 {
		t.Errorf("expected one transcription call, got %d", tr.calls)
	}
}

func TestProcessRejectsDisabledMerchant(t *testing.T) {
	tr := &fakeTranscriber{}
	svc := NewService(tr, nil, logger.New("test"))
	merchant := voiceMerchant()
	merchant.VoiceEnabled = false

	_, err := svc.Process(context.Background(), merchant, "http://example.invalid/clip.ogg", "auto")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if tr.calls != 0 {
		t.Error("disabled merchants must not reach the transcriber")
	}
}

func TestProcessRejectsOversizedAudio(t *testing.T) {
	srv := audioServer(t, "audio/ogg", nil, maxAudioBytes+1)
	tr := &fakeTranscriber{}
	svc := NewService(tr, nil, logger.New("test"))

	_, err := svc.Process(context.Background(), voiceMerchant(), srv.URL+"/clip.ogg", "auto")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if tr.calls != 0 {
		t.Error("oversized clips must not reach the transcriber")
	}
}

func TestProcessRejectsUnsupportedFormat(t *testing.T) {
	srv := audioServer(t, "video/mp4", []byte("x"), 1)
	svc := NewService(&fakeTranscriber{}, nil, logger.New("test"))

	_, err := svc.Process(context.Background(), voiceMerchant(), srv.URL+"/clip.mp4", "auto")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessSurvivesArchiverFailure(t *testing.T) {
	clip := []byte("bytes")
	srv := audioServer(t, "audio/ogg", clip, len(clip))
	tr := &fakeTranscriber{result: Transcription{Text: "hello", Confidence: 0.9}}
	ar := &fakeArchiver{err: context.DeadlineExceeded}
	svc := NewService(tr, ar, logger.New("test"))

	got, err := svc.Process(context.Background(), voiceMerchant(), srv.URL+"/clip.ogg", "auto")
	if err != nil {
		t.Fatalf("archival is best-effort, transcription should still run: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("unexpected transcript %q", got.Text)
	}
}

func TestHTTPTranscriberParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(transcriberResponse{
			Text: "  مرحبا  ", Confidence: 1.4, Language: "ar-JO", Duration: 2.5,
		})
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(speechTestConfig{url: srv.URL, key: "key-1"})
	got, err := tr.Transcribe(context.Background(), []byte("audio"), "audio/ogg", "ar")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "مرحبا" {
		t.Errorf("text should be trimmed, got %q", got.Text)
	}
	if got.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %v", got.Confidence)
	}
	if got.Language != "ar" {
		t.Errorf("language should normalize to ar, got %q", got.Language)
	}
	if got.WordCount != 1 {
		t.Errorf("expected word count 1, got %d", got.WordCount)
	}
}

type speechTestConfig struct {
	url string
	key string
}

func (c speechTestConfig) GetTranscriberURL() string    { return c.url }
func (c speechTestConfig) GetTranscriberAPIKey() string { return c.key }
func (c speechTestConfig) IsTranscriberEnabled() bool   { return c.url != "" }
