package mock

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/rpohub/internal/content/provider"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Provider satisfies models.ContentGenerator without calling any model.
type Provider struct {
	ProviderName string
	GenerateFunc func(ctx context.Context, req models.GenerationRequest) (models.GeneratedText, error)
}

func (m *Provider) Name() string { return m.ProviderName }

func (m *Provider) Generate(ctx context.Context, req models.GenerationRequest) (models.GeneratedText, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return models.GeneratedText{}, nil
}

// NewProvider returns a Provider that writes deterministic copy from the job facts.
func NewProvider() *Provider {
	return &Provider{
		ProviderName: "mock",
		GenerateFunc: func(_ context.Context, req models.GenerationRequest) (models.GeneratedText, error) {
			body := fmt.Sprintf("%s is hiring a %s.", req.CustomerName, req.Job.Title)
			if req.Job.Location != "" {
				body += " Location: " + req.Job.Location + "."
			}
			if req.Previous != nil {
				body += fmt.Sprintf(" Revision of v%d.", req.Previous.Version)
			}
			return models.GeneratedText{
				Title: req.Job.Title,
				Body:  body,
				Model: "mock-v1",
			}, nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns err.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		ProviderName: "mock-failing",
		GenerateFunc: func(_ context.Context, _ models.GenerationRequest) (models.GeneratedText, error) {
			return models.GeneratedText{}, err
		},
	}
}

// NewTimeoutProvider returns a Provider that blocks until ctx is done.
func NewTimeoutProvider() *Provider {
	return &Provider{
		ProviderName: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ models.GenerationRequest) (models.GeneratedText, error) {
			<-ctx.Done()
			return models.GeneratedText{}, provider.ErrGenerationTimeout
		},
	}
}

var _ models.ContentGenerator = (*Provider)(nil)
