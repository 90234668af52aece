// Package provider holds what every text generation backend shares: error
// kinds, the prompt and parsing of the model's answer.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kiranshivaraju/rpohub/pkg/models"
)

var (
	ErrProviderUnavailable = errors.New("content provider unavailable")
	ErrGenerationTimeout   = errors.New("content generation timeout")
	ErrInvalidResponse     = errors.New("content provider returned invalid response")
)

// SystemPrompt instructs the model about the expected answer format.
const SystemPrompt = `You write job postings for a recruitment agency.
Answer with a single JSON object of the form {"title": "...", "body": "..."}.
The body is plain text with short paragraphs and bullet lists. Do not invent benefits or salary figures.`

// UserPrompt renders the job facts, and the previous copy when revising.
func UserPrompt(req models.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", req.CustomerName)
	fmt.Fprintf(&b, "Title: %s\n", req.Job.Title)
	writeField(&b, "Location", req.Job.Location)
	writeField(&b, "Employment type", req.Job.EmploymentType)
	writeField(&b, "Salary", req.Job.Salary)
	writeField(&b, "Description", req.Job.Description)
	writeField(&b, "Requirements", req.Job.Requirements)
	if req.Previous != nil {
		fmt.Fprintf(&b, "\nPrevious version (v%d), write an improved revision:\nTitle: %s\n%s\n",
			req.Previous.Version, req.Previous.Title, req.Previous.Body)
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", name, value)
}

// ParseGenerated extracts title and body from the model's answer. A JSON
// object (optionally inside a code fence) is preferred; otherwise the first
// non-empty line is the title and the rest the body.
func ParseGenerated(text string) (title, body string, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", fmt.Errorf("%w: empty answer", ErrInvalidResponse)
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		var out struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if json.Unmarshal([]byte(text[start:end+1]), &out) == nil && strings.TrimSpace(out.Body) != "" {
			return strings.TrimSpace(out.Title), strings.TrimSpace(out.Body), nil
		}
	}

	lines := strings.SplitN(text, "\n", 2)
	title = strings.TrimSpace(strings.TrimLeft(lines[0], "# "))
	if len(lines) == 2 {
		body = strings.TrimSpace(lines[1])
	}
	if body == "" {
		return "", "", fmt.Errorf("%w: answer has no body", ErrInvalidResponse)
	}
	return title, body, nil
}

// ClassifyError maps transport-level errors to sentinel errors.
func ClassifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// StatusError maps a non-2xx provider response to a sentinel error.
func StatusError(status int) error {
	if status >= 500 || status == 429 {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, status)
	}
	return fmt.Errorf("%w: status %d", ErrInvalidResponse, status)
}
