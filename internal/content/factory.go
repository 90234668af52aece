package content

import (
	"fmt"

	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/kiranshivaraju/rpohub/internal/content/anthropic"
	"github.com/kiranshivaraju/rpohub/internal/content/mock"
	"github.com/kiranshivaraju/rpohub/internal/content/openai"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// NewGenerator constructs the configured text generation backend.
// Called once at server startup.
func NewGenerator(cfg config.ContentConfig) (models.ContentGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown content provider %q: must be one of openai, anthropic, mock", cfg.Provider)
	}
}
