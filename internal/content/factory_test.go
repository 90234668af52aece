package content

import (
	"testing"

	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "mock"} {
		t.Run(name, func(t *testing.T) {
			gen, err := NewGenerator(config.ContentConfig{Provider: name})
			require.NoError(t, err)
			assert.Equal(t, name, gen.Name())
		})
	}
}

func TestNewGenerator_Unknown(t *testing.T) {
	_, err := NewGenerator(config.ContentConfig{Provider: "ollama"})
	assert.ErrorContains(t, err, "unknown content provider")
}
