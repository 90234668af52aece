package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

const maxTitleLength = 200

// CreateJobInput holds the fields staff provide for a new job posting.
type CreateJobInput struct {
	CustomerID     uuid.UUID
	Title          string
	Description    string
	Location       string
	Salary         string
	EmploymentType string
	Requirements   string
}

// externalTargets are the job statuses staff may set directly. Every other
// status is entered only through generation or the approval flow.
var externalTargets = map[models.JobStatus]bool{
	models.JobStatusPublishing:    true,
	models.JobStatusPublished:     true,
	models.JobStatusPublishFailed: true,
	models.JobStatusStopped:       true,
}

// CreateJob creates a DRAFT job for a customer of the caller's tenant.
func (s *Service) CreateJob(ctx context.Context, caller models.Caller, in CreateJobInput) (*models.Job, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title must be at most %d characters", ErrInvalidArgument, maxTitleLength)
	}
	if in.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidArgument)
	}

	if _, err := s.store.GetCustomer(ctx, in.CustomerID, caller.TenantID); err != nil {
		return nil, translate("get customer", err)
	}

	now := s.now()
	job := &models.Job{
		ID:             uuid.New(),
		TenantID:       caller.TenantID,
		CustomerID:     in.CustomerID,
		Title:          title,
		Description:    in.Description,
		Location:       in.Location,
		Salary:         in.Salary,
		EmploymentType: in.EmploymentType,
		Requirements:   in.Requirements,
		Status:         models.JobStatusDraft,
		CreatedBy:      caller.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, translate("create job", err)
	}
	return job, nil
}

// SubmitForApproval opens a review cycle for a GENERATED job, moving it to
// PENDING_APPROVAL. A job already in PENDING_APPROVAL without an open
// approval gets a fresh approval and keeps its status. A job that already
// has a pending approval yields ErrConflict.
func (s *Service) SubmitForApproval(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.Approval, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	now := s.now()
	approval := &models.Approval{
		ID:          uuid.New(),
		JobID:       jobID,
		Status:      models.ApprovalStatusPending,
		RequestedAt: now,
	}
	repaired := false

	err := s.store.InTx(ctx, func(q store.Queries) error {
		job, err := q.GetJobForUpdate(ctx, caller.TenantID, jobID)
		if err != nil {
			return err
		}

		switch job.Status {
		case models.JobStatusGenerated:
			if err := q.SetJobStatus(ctx, job.ID, models.JobStatusPendingApproval, now); err != nil {
				return err
			}
		case models.JobStatusPendingApproval:
			repaired = true
		default:
			return fmt.Errorf("%w: job in status %s cannot be submitted for approval", ErrConflict, job.Status)
		}

		return q.CreateApproval(ctx, approval)
	})
	if err != nil {
		return nil, translate("submit for approval", err)
	}

	s.emit(caller, models.EventJobSubmitted, jobID, &approval.ID, now, map[string]any{"repaired": repaired})
	return approval, nil
}

// TransitionJob moves a job along one of the publishing edges of the state
// machine. Edges owned by generation or the approval flow are refused.
func (s *Service) TransitionJob(ctx context.Context, caller models.Caller, jobID uuid.UUID, to models.JobStatus) (*models.Job, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown job status %q", ErrInvalidArgument, to)
	}
	if !externalTargets[to] {
		return nil, fmt.Errorf("%w: status %s is set by the approval or generation flow", ErrConflict, to)
	}

	now := s.now()
	var job *models.Job
	var from models.JobStatus
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		job, err = q.GetJobForUpdate(ctx, caller.TenantID, jobID)
		if err != nil {
			return err
		}
		from = job.Status
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: cannot move job from %s to %s", ErrConflict, from, to)
		}
		if err := q.SetJobStatus(ctx, job.ID, to, now); err != nil {
			return err
		}
		job.Status = to
		job.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, translate("transition job", err)
	}

	s.emit(caller, models.EventJobStatusChanged, jobID, nil, now, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
	return job, nil
}
