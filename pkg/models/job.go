package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusDraft           JobStatus = "DRAFT"
	JobStatusGenerated       JobStatus = "GENERATED"
	JobStatusPendingApproval JobStatus = "PENDING_APPROVAL"
	JobStatusApproved        JobStatus = "APPROVED"
	JobStatusPublishing      JobStatus = "PUBLISHING"
	JobStatusPublished       JobStatus = "PUBLISHED"
	JobStatusStopped         JobStatus = "STOPPED"
	JobStatusPublishFailed   JobStatus = "PUBLISH_FAILED"
)

// jobTransitions lists every edge of the job posting state machine.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusDraft:           {JobStatusGenerated},
	JobStatusGenerated:       {JobStatusPendingApproval},
	JobStatusPendingApproval: {JobStatusApproved, JobStatusDraft},
	JobStatusApproved:        {JobStatusPublishing},
	JobStatusPublishing:      {JobStatusPublished, JobStatusPublishFailed},
	JobStatusPublished:       {JobStatusStopped},
	JobStatusPublishFailed:   {JobStatusPublishing},
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusDraft, JobStatusGenerated, JobStatusPendingApproval, JobStatusApproved,
		JobStatusPublishing, JobStatusPublished, JobStatusStopped, JobStatusPublishFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine has an edge from s to next.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is a job posting owned by one customer. Status only changes through
// the lifecycle operations once the job leaves DRAFT.
type Job struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	TenantID       uuid.UUID `db:"tenant_id"       json:"tenant_id"`
	CustomerID     uuid.UUID `db:"customer_id"     json:"customer_id"`
	Title          string    `db:"title"           json:"title"`
	Description    string    `db:"description"     json:"description"`
	Location       string    `db:"location"        json:"location"`
	Salary         string    `db:"salary"          json:"salary"`
	EmploymentType string    `db:"employment_type" json:"employment_type"`
	Requirements   string    `db:"requirements"    json:"requirements"`
	Status         JobStatus `db:"status"          json:"status"`
	CreatedBy      uuid.UUID `db:"created_by"      json:"created_by"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// JobSummary is the slice of a job shown next to a pending approval.
type JobSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Status       JobStatus `json:"status"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
}

// JobDetail is a job together with its latest content and recent approval history.
type JobDetail struct {
	Job
	LatestText  *JobTextVersion        `json:"latest_text"`
	LatestImage *JobImageVersion       `json:"latest_image"`
	Approvals   []*ApprovalWithReviews `json:"approvals"`
}
