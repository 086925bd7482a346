package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"igcommerce_backend/platform/config"
)

// HTTPTranscriber calls an external speech-to-text service over HTTP.
type HTTPTranscriber struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPTranscriber creates a transcriber client from config.
func NewHTTPTranscriber(cfg config.SpeechConfig) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: strings.TrimRight(cfg.GetTranscriberURL(), "/"),
		apiKey:   cfg.GetTranscriberAPIKey(),
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type transcriberResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration"`
}

// Transcribe posts the raw audio and decodes the recognition result.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, contentType, language string) (Transcription, error) {
	url := t.endpoint + "/v1/transcribe"
	if language != "" && language != "auto" {
		url += "?language=" + language
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return Transcription{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Transcription{}, fmt.Errorf("transcriber request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Transcription{}, fmt.Errorf("transcriber returned status %d", resp.StatusCode)
	}

	var out transcriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcription{}, fmt.Errorf("decode transcriber response: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	confidence := out.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	result := Transcription{
		Text:       text,
		Confidence: confidence,
		Language:   normalizeLanguage(out.Language),
		Duration:   out.Duration,
	}
	if text != "" {
		result.WordCount = len(strings.Fields(text))
	}
	return result, nil
}

func normalizeLanguage(code string) string {
	switch {
	case strings.HasPrefix(code, "ar"):
		return "ar"
	case strings.HasPrefix(code, "en"):
		return "en"
	default:
		return "auto"
	}
}

var _ Transcriber = (*HTTPTranscriber)(nil)
