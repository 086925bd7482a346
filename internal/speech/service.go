package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
)

// Service fetches, validates, archives, and transcribes voice messages for
// merchants with voice support enabled.
type Service struct {
	transcriber Transcriber
	archiver    Archiver
	fetcher     *http.Client
	log         *logger.Logger
}

// NewService creates the speech service. archiver may be nil when storage
// is not configured; archival is then skipped.
func NewService(transcriber Transcriber, archiver Archiver, log *logger.Logger) *Service {
	return &Service{
		transcriber: transcriber,
		archiver:    archiver,
		fetcher:     &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
}

// Process transcribes the audio clip at audioURL for the merchant.
// The clip is validated before download and archived best-effort after.
func (s *Service) Process(ctx context.Context, merchant catalog.Merchant, audioURL, language string) (Transcription, error) {
	if !merchant.VoiceEnabled {
		return Transcription{}, apperr.Forbidden("voice messages are disabled for this merchant")
	}
	if s.transcriber == nil {
		return Transcription{}, apperr.Internal("transcription service is not configured")
	}

	contentType, err := s.validate(ctx, audioURL)
	if err != nil {
		return Transcription{}, err
	}

	audio, contentType, err := s.fetch(ctx, audioURL, contentType)
	if err != nil {
		return Transcription{}, err
	}

	if s.archiver != nil {
		key := fmt.Sprintf("%s/%s%s", merchant.ID, uuid.NewString(), extensionFor(contentType))
		if err := s.archiver.Archive(ctx, key, audio, contentType); err != nil {
			s.log.Error("voice clip archival failed", "merchant_id", merchant.ID, "error", err)
		}
	}

	result, err := s.transcriber.Transcribe(ctx, audio, contentType, language)
	if err != nil {
		return Transcription{}, apperr.Wrap(apperr.KindInternal, "transcription failed", err)
	}

	s.log.Info("voice message transcribed",
		"merchant_id", merchant.ID, "confidence", result.Confidence,
		"language", result.Language, "word_count", result.WordCount)
	return result, nil
}

// validate checks type and size via a HEAD request before downloading.
func (s *Service) validate(ctx context.Context, audioURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, audioURL, nil)
	if err != nil {
		return "", apperr.Validation("invalid audio URL")
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to probe audio attachment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Validation("audio attachment is not accessible")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !supportedContentType(contentType) {
		return "", apperr.Validation("unsupported audio format: " + contentType)
	}

	if raw := resp.Header.Get("Content-Length"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && size > maxAudioBytes {
			return "", apperr.Validation("audio file exceeds the 25MB limit")
		}
	}
	return contentType, nil
}

func (s *Service) fetch(ctx context.Context, audioURL, contentType string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, "", apperr.Validation("invalid audio URL")
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to download audio attachment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Validation("audio attachment is not accessible")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		contentType = ct
	}

	// Content-Length can lie; cap the read regardless.
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to read audio attachment", err)
	}
	if len(audio) > maxAudioBytes {
		return nil, "", apperr.Validation("audio file exceeds the 25MB limit")
	}
	return audio, contentType, nil
}
