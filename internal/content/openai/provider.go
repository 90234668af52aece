// Package openai talks to any server exposing the OpenAI chat completions
// API: OpenAI itself, vLLM and Ollama.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/kiranshivaraju/rpohub/internal/content/provider"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Provider implements models.ContentGenerator using /v1/chat/completions.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

// NewProvider creates a Provider. Request deadlines come from the caller's context.
func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (models.GeneratedText, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: provider.SystemPrompt},
			{Role: "user", Content: provider.UserPrompt(req)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return models.GeneratedText{}, fmt.Errorf("encoding request: %w", err)
	}

	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.GeneratedText{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.GeneratedText{}, provider.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GeneratedText{}, provider.StatusError(resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.GeneratedText{}, fmt.Errorf("%w: decoding response: %v", provider.ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 {
		return models.GeneratedText{}, fmt.Errorf("%w: no choices", provider.ErrInvalidResponse)
	}

	title, text, err := provider.ParseGenerated(out.Choices[0].Message.Content)
	if err != nil {
		return models.GeneratedText{}, err
	}

	model := out.Model
	if model == "" {
		model = p.cfg.Model
	}
	return models.GeneratedText{Title: title, Body: text, Model: model}, nil
}

var _ models.ContentGenerator = (*Provider)(nil)
