package models

import (
	"time"

	"github.com/google/uuid"
)

// JobTextVersion holds one generated revision of a job posting's copy.
type JobTextVersion struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	JobID     uuid.UUID `db:"job_id"     json:"job_id"`
	Version   int       `db:"version"    json:"version"`
	Title     string    `db:"title"      json:"title"`
	Body      string    `db:"body"       json:"body"`
	Provider  string    `db:"provider"   json:"provider"`
	Model     string    `db:"model"      json:"model"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JobImageVersion is a rendered visual for a job posting. Written by the image pipeline.
type JobImageVersion struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	JobID     uuid.UUID `db:"job_id"     json:"job_id"`
	Version   int       `db:"version"    json:"version"`
	URL       string    `db:"url"        json:"url"`
	Prompt    string    `db:"prompt"     json:"prompt"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type GenerationState string

const (
	GenerationPending   GenerationState = "pending"
	GenerationRunning   GenerationState = "running"
	GenerationCompleted GenerationState = "completed"
	GenerationFailed    GenerationState = "failed"
)

// GenerationStatus is the short-lived progress record of one generation run.
type GenerationStatus struct {
	JobID     uuid.UUID       `json:"job_id"`
	State     GenerationState `json:"state"`
	Provider  string          `json:"provider"`
	Version   int             `json:"version,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Active reports whether the run has not finished yet.
func (s GenerationStatus) Active() bool {
	return s.State == GenerationPending || s.State == GenerationRunning
}
