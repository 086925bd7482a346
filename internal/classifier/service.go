package classifier

import (
	"context"
	"fmt"

	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/logger"
)

// Service implements Gateway on top of a model backend. Oracle failures on
// sentiment and intent degrade to neutral defaults rather than erroring, so
// one flaky upstream call never drops a customer message.
type Service struct {
	backend backend
	log     *logger.Logger
	enabled bool
}

// NewService builds a Service from configuration, selecting the backend by
// provider name. An unset API key yields a disabled service that always
// returns defaults.
func NewService(ctx context.Context, cfg config.ClassifierConfig, log *logger.Logger) (*Service, error) {
	if !cfg.IsClassifierEnabled() {
		log.Warn("classifier disabled, falling back to neutral defaults")
		return &Service{log: log}, nil
	}

	var b backend
	switch cfg.GetClassifierProvider() {
	case "gemini":
		gb, err := NewGeminiBackend(ctx, GeminiConfig{
			APIKey: cfg.GetClassifierAPIKey(),
			Model:  cfg.GetClassifierModel(),
		})
		if err != nil {
			return nil, err
		}
		b = gb
	case "openai":
		b = NewOpenAIBackend(OpenAIConfig{
			APIKey:  cfg.GetClassifierAPIKey(),
			BaseURL: cfg.GetClassifierEndpoint(),
			Model:   cfg.GetClassifierModel(),
		})
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.GetClassifierProvider())
	}

	return &Service{backend: b, log: log, enabled: true}, nil
}

// newServiceWithBackend is used by tests to inject a fake backend.
func newServiceWithBackend(b backend, log *logger.Logger) *Service {
	return &Service{backend: b, log: log, enabled: true}
}

// Analysis temperatures are low for deterministic JSON; replies are creative.
const (
	analysisTemperature = 0.1
	replyTemperature    = 0.7
)

func (s *Service) AnalyzeSentiment(ctx context.Context, text, language string) (Sentiment, error) {
	if !s.enabled {
		return DefaultSentiment(), nil
	}

	raw, _, err := s.backend.Complete(ctx, completion{
		System:      sentimentPrompt(language),
		User:        text,
		Temperature: analysisTemperature,
		JSONMode:    true,
	})
	if err != nil {
		s.log.Error("sentiment analysis failed", "error", err)
		return DefaultSentiment(), nil
	}

	sentiment, err := parseSentiment(raw)
	if err != nil {
		s.log.Error("sentiment parse failed", "error", err)
		return DefaultSentiment(), nil
	}
	return sentiment, nil
}

func (s *Service) ClassifyIntent(ctx context.Context, text, language string) (Intent, error) {
	if !s.enabled {
		return DefaultIntent(), nil
	}

	raw, _, err := s.backend.Complete(ctx, completion{
		System:      intentPrompt(language),
		User:        text,
		Temperature: analysisTemperature,
		JSONMode:    true,
	})
	if err != nil {
		s.log.Error("intent classification failed", "error", err)
		return DefaultIntent(), nil
	}

	intent, err := parseIntent(raw)
	if err != nil {
		s.log.Error("intent parse failed", "error", err)
		return DefaultIntent(), nil
	}
	return intent, nil
}

// ExtractOrder returns an error on oracle failure: unlike sentiment and
// intent, a fabricated extraction could create a wrong order.
func (s *Service) ExtractOrder(ctx context.Context, req ExtractRequest) (Extraction, error) {
	if !s.enabled {
		return Extraction{}, fmt.Errorf("classifier disabled")
	}

	raw, _, err := s.backend.Complete(ctx, completion{
		System:      extractionPrompt(req),
		User:        req.MessageText,
		Temperature: analysisTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("order extraction: %w", err)
	}
	return parseExtraction(raw)
}

func (s *Service) GenerateReply(ctx context.Context, req ReplyRequest) (Reply, error) {
	if !s.enabled {
		return Reply{}, fmt.Errorf("classifier disabled")
	}

	raw, tokens, err := s.backend.Complete(ctx, completion{
		System:      replyPrompt(req),
		User:        req.MessageText,
		Temperature: replyTemperature,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	return Reply{
		Text:       raw,
		Confidence: 0.8,
		TokensUsed: tokens,
	}, nil
}
