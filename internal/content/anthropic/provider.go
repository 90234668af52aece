// Package anthropic implements content generation with the Anthropic Messages API.
package anthropic

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

const (
	apiVersion = "2023-06-01"
	maxTokens  = 2048
)

// Provider implements models.ContentGenerator using /v1/messages.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "anthropic" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (models.GeneratedText, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		System:    provider.SystemPrompt,
		Messages:  []message{{Role: "user", Content: provider.UserPrompt(req)}},
	})
	if err != nil {
		return models.GeneratedText{}, fmt.Errorf("encoding request: %w", err)
	}

	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.GeneratedText{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.GeneratedText{}, provider.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GeneratedText{}, provider.StatusError(resp.StatusCode)
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.GeneratedText{}, fmt.Errorf("%w: decoding response: %v", provider.ErrInvalidResponse, err)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	title, generated, err := provider.ParseGenerated(text.String())
	if err != nil {
		return models.GeneratedText{}, err
	}

	model := out.Model
	if model == "" {
		model = p.cfg.Model
	}
	return models.GeneratedText{Title: title, Body: generated, Model: model}, nil
}

var _ models.ContentGenerator = (*Provider)(nil)
