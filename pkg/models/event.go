package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventJobSubmitted     = "job.submitted"
	EventJobApproved      = "job.approved"
	EventJobRejected      = "job.rejected"
	EventJobStatusChanged = "job.status_changed"
	EventJobGenerated     = "job.generated"
)

// Event describes a committed lifecycle transition. Events are dispatched
// after the transaction commits and never influence its outcome.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	JobID      uuid.UUID      `json:"job_id"`
	ApprovalID *uuid.UUID     `json:"approval_id,omitempty"`
	ActorID    uuid.UUID      `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}
