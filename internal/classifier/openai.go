package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// completion is a single system+user exchange sent to a backend. All oracle
// operations reduce to this shape.
type completion struct {
	System      string
	User        string
	Temperature float64
	JSONMode    bool
}

// backend abstracts the model provider behind the gateway.
type backend interface {
	Complete(ctx context.Context, req completion) (text string, tokens int, err error)
}

// OpenAIConfig for any OpenAI-compatible chat-completions endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIBackend talks to an OpenAI-compatible /chat/completions API.
type OpenAIBackend struct {
	config OpenAIConfig
	client *http.Client
}

func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	return &OpenAIBackend{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error interface{} `json:"error"`
}

func (b *OpenAIBackend) Complete(ctx context.Context, req completion) (string, int, error) {
	payload := map[string]interface{}{
		"model": b.config.Model,
		"messages": []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		"temperature": req.Temperature,
	}
	if req.JSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", 0, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("failed to decode completion response: %v", err)
	}
	if result.Error != nil {
		return "", 0, fmt.Errorf("completion api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return "", 0, fmt.Errorf("completion api error: empty choices")
	}

	return result.Choices[0].Message.Content, result.Usage.TotalTokens, nil
}
