package models

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

// Approval is one review cycle for a job. At most one approval per job is
// PENDING at any time; resolved approvals are kept as history.
type Approval struct {
	ID          uuid.UUID      `db:"id"           json:"id"`
	JobID       uuid.UUID      `db:"job_id"       json:"job_id"`
	Status      ApprovalStatus `db:"status"       json:"status"`
	RequestedAt time.Time      `db:"requested_at" json:"requested_at"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// ApprovalReview is the immutable audit record of one reviewer action.
type ApprovalReview struct {
	ID         uuid.UUID    `db:"id"          json:"id"`
	ApprovalID uuid.UUID    `db:"approval_id" json:"approval_id"`
	ReviewerID uuid.UUID    `db:"reviewer_id" json:"reviewer_id"`
	Action     ReviewAction `db:"action"      json:"action"`
	Comment    *string      `db:"comment"     json:"comment"`
	CreatedAt  time.Time    `db:"created_at"  json:"created_at"`
}

type ApprovalWithReviews struct {
	Approval
	Reviews []*ApprovalReview `json:"reviews"`
}

// PendingApproval is a row of a customer's review queue.
type PendingApproval struct {
	Approval
	Job     JobSummary        `json:"job"`
	Reviews []*ApprovalReview `json:"reviews"`
}
