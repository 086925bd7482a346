package classifier

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig for the Gemini API backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiBackend talks to the Gemini API directly.
type GeminiBackend struct {
	config GeminiConfig
	client *genai.Client
}

func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiBackend{config: cfg, client: client}, nil
}

func (b *GeminiBackend) Complete(ctx context.Context, req completion) (string, int, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		},
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.config.Model, genai.Text(req.User), cfg)
	if err != nil {
		return "", 0, fmt.Errorf("gemini api error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", 0, fmt.Errorf("gemini api error: empty response")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, tokens, nil
}
