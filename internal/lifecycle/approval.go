package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// resolution describes one way of closing a pending approval.
type resolution struct {
	action    models.ReviewAction
	approval  models.ApprovalStatus
	job       models.JobStatus
	eventType string
}

var (
	approveResolution = resolution{
		action:    models.ReviewActionApprove,
		approval:  models.ApprovalStatusApproved,
		job:       models.JobStatusApproved,
		eventType: models.EventJobApproved,
	}
	rejectResolution = resolution{
		action:    models.ReviewActionReject,
		approval:  models.ApprovalStatusRejected,
		job:       models.JobStatusDraft,
		eventType: models.EventJobRejected,
	}
)

// Approve closes a pending approval of the caller's customer as APPROVED,
// records the review and moves the job to APPROVED, all in one transaction.
// It returns ErrNotFound when the approval does not exist, belongs to another
// customer or is no longer pending.
func (s *Service) Approve(ctx context.Context, caller models.Caller, approvalID uuid.UUID) (*models.Approval, error) {
	a, err := s.resolve(ctx, caller, approvalID, approveResolution, nil)
	s.metrics.RecordApproval(string(models.ReviewActionApprove), outcome(err))
	return a, err
}

// Reject closes a pending approval as REJECTED and sends the job back to
// DRAFT. comment must contain something other than whitespace.
func (s *Service) Reject(ctx context.Context, caller models.Caller, approvalID uuid.UUID, comment string) (*models.Approval, error) {
	a, err := s.resolve(ctx, caller, approvalID, rejectResolution, &comment)
	s.metrics.RecordApproval(string(models.ReviewActionReject), outcome(err))
	return a, err
}

func (s *Service) resolve(ctx context.Context, caller models.Caller, approvalID uuid.UUID, r resolution, comment *string) (*models.Approval, error) {
	customerID, err := portalCustomer(caller)
	if err != nil {
		return nil, err
	}
	if r.action == models.ReviewActionReject && (comment == nil || strings.TrimSpace(*comment) == "") {
		return nil, fmt.Errorf("%w: comment is required when rejecting", ErrInvalidArgument)
	}

	var resolved *models.Approval
	now := s.now()
	err = s.store.InTx(ctx, func(q store.Queries) error {
		current, err := q.GetCustomerApproval(ctx, caller.TenantID, customerID, approvalID)
		if err != nil {
			return err
		}
		if current.Status != models.ApprovalStatusPending {
			return store.ErrNotFound
		}
		// The first row lock taken is the job's, so approve/reject and
		// submit always acquire row locks in the same order.
		if _, err := q.GetJobForUpdate(ctx, caller.TenantID, current.JobID); err != nil {
			return err
		}

		// The PENDING predicate of this update is the concurrency guard: of
		// two concurrent resolvers only one matches a row.
		resolved, err = q.ResolvePendingApproval(ctx, store.ResolveApprovalParams{
			ApprovalID:  approvalID,
			TenantID:    caller.TenantID,
			CustomerID:  customerID,
			Status:      r.approval,
			CompletedAt: now,
		})
		if err != nil {
			return err
		}

		if err := q.CreateApprovalReview(ctx, &models.ApprovalReview{
			ID:         uuid.New(),
			ApprovalID: resolved.ID,
			ReviewerID: caller.UserID,
			Action:     r.action,
			Comment:    comment,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		return q.SetJobStatus(ctx, resolved.JobID, r.job, now)
	})
	if err != nil {
		return nil, translate(string(r.action), err)
	}

	data := map[string]any{"status": string(r.job)}
	if comment != nil {
		data["comment"] = *comment
	}
	s.emit(caller, r.eventType, resolved.JobID, &resolved.ID, now, data)
	return resolved, nil
}

// ListPending returns the open approvals of the caller's customer, newest first.
func (s *Service) ListPending(ctx context.Context, caller models.Caller) ([]*models.PendingApproval, error) {
	customerID, err := portalCustomer(caller)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.ListPendingApprovals(ctx, caller.TenantID, customerID)
	if err != nil {
		return nil, translate("list pending approvals", err)
	}
	return pending, nil
}

// GetJob returns one of the caller's customer's jobs with its latest content
// and recent approval history.
func (s *Service) GetJob(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.JobDetail, error) {
	customerID, err := portalCustomer(caller)
	if err != nil {
		return nil, err
	}

	job, err := s.store.GetCustomerJob(ctx, caller.TenantID, customerID, jobID)
	if err != nil {
		return nil, translate("get job", err)
	}
	return s.jobDetail(ctx, job)
}

// GetStaffJob is GetJob for staff: any job of the caller's tenant.
func (s *Service) GetStaffJob(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.JobDetail, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	job, err := s.store.GetJob(ctx, jobID, caller.TenantID)
	if err != nil {
		return nil, translate("get job", err)
	}
	return s.jobDetail(ctx, job)
}

func (s *Service) jobDetail(ctx context.Context, job *models.Job) (*models.JobDetail, error) {
	detail := &models.JobDetail{Job: *job}

	text, err := s.store.GetLatestTextVersion(ctx, job.ID)
	switch {
	case err == nil:
		detail.LatestText = text
	case !errors.Is(err, store.ErrNotFound):
		return nil, translate("get latest text version", err)
	}

	image, err := s.store.GetLatestImageVersion(ctx, job.ID)
	switch {
	case err == nil:
		detail.LatestImage = image
	case !errors.Is(err, store.ErrNotFound):
		return nil, translate("get latest image version", err)
	}

	approvals, err := s.store.ListJobApprovals(ctx, job.ID, recentApprovalsLimit)
	if err != nil {
		return nil, translate("list job approvals", err)
	}
	detail.Approvals = approvals

	return detail, nil
}
