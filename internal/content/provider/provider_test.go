package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kiranshivaraju/rpohub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenerated_JSON(t *testing.T) {
	title, body, err := ParseGenerated(`{"title": "Senior Go Engineer", "body": "Join us."}`)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", title)
	assert.Equal(t, "Join us.", body)
}

func TestParseGenerated_FencedJSON(t *testing.T) {
	answer := "Here you go:\n```json\n{\"title\": \"Nurse\", \"body\": \"Night shifts.\"}\n```"
	title, body, err := ParseGenerated(answer)
	require.NoError(t, err)
	assert.Equal(t, "Nurse", title)
	assert.Equal(t, "Night shifts.", body)
}

func TestParseGenerated_PlainTextFallback(t *testing.T) {
	title, body, err := ParseGenerated("# Warehouse Lead\n\nYou will run the night crew.\n- forklift licence")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse Lead", title)
	assert.True(t, strings.HasPrefix(body, "You will run"))
}

func TestParseGenerated_Invalid(t *testing.T) {
	for _, answer := range []string{"", "   ", "Only a title"} {
		_, _, err := ParseGenerated(answer)
		assert.ErrorIs(t, err, ErrInvalidResponse, answer)
	}
}

func TestUserPrompt(t *testing.T) {
	req := models.GenerationRequest{
		Job:          models.Job{Title: "Chef", Location: "Lyon", Salary: ""},
		CustomerName: "Bistro",
		Previous:     &models.JobTextVersion{Version: 2, Title: "Cook", Body: "old body"},
	}
	p := UserPrompt(req)
	assert.Contains(t, p, "Company: Bistro")
	assert.Contains(t, p, "Location: Lyon")
	assert.NotContains(t, p, "Salary:")
	assert.Contains(t, p, "Previous version (v2)")
	assert.Contains(t, p, "old body")
}

func TestClassifyError(t *testing.T) {
	assert.ErrorIs(t, ClassifyError(context.DeadlineExceeded), ErrGenerationTimeout)
	assert.ErrorIs(t, ClassifyError(fmt.Errorf("dial: %w", errors.New("refused"))), ErrProviderUnavailable)
}

func TestStatusError(t *testing.T) {
	assert.ErrorIs(t, StatusError(503), ErrProviderUnavailable)
	assert.ErrorIs(t, StatusError(429), ErrProviderUnavailable)
	assert.ErrorIs(t, StatusError(400), ErrInvalidResponse)
}
