package models

import "context"

// ContentGenerator is the interface every text generation backend implements.
// Services never call a specific provider directly.
type ContentGenerator interface {
	// Generate writes posting copy for a job.
	Generate(ctx context.Context, req GenerationRequest) (GeneratedText, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}

// GenerationRequest is the input to a generation call.
type GenerationRequest struct {
	Job          Job
	CustomerName string
	Previous     *JobTextVersion // latest existing version, if any
}

// GeneratedText is what a provider returns for a job.
type GeneratedText struct {
	Title string
	Body  string
	Model string
}
