package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/kiranshivaraju/rpohub/internal/content/provider"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

func TestGenerate_ValidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("missing version header")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System == "" || len(req.Messages) != 1 || req.MaxTokens != maxTokens {
			t.Errorf("unexpected request: %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model": "claude-sonnet-4-5",
			"content": []map[string]string{
				{"type": "text", "text": `{"title":"Pharmacist",`},
				{"type": "text", "text": `"body":"Full time role."}`},
			},
		})
	}))
	defer ts.Close()

	p := NewProvider(config.AnthropicConfig{BaseURL: ts.URL, APIKey: "sk-ant-test", Model: "claude-sonnet-4-5"})
	got, err := p.Generate(context.Background(), models.GenerationRequest{Job: models.Job{Title: "Pharmacist"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Pharmacist" || got.Body != "Full time role." || got.Model != "claude-sonnet-4-5" {
		t.Errorf("unexpected text: %+v", got)
	}
}

func TestGenerate_BadRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	p := NewProvider(config.AnthropicConfig{BaseURL: ts.URL, APIKey: "k", Model: "m"})
	_, err := p.Generate(context.Background(), models.GenerationRequest{})
	if !errors.Is(err, provider.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	p := NewProvider(config.AnthropicConfig{BaseURL: url, APIKey: "k", Model: "m"})
	_, err := p.Generate(context.Background(), models.GenerationRequest{})
	if !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
