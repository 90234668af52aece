package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// pendingApprovalIndex is the partial unique index that allows one PENDING
// approval per job.
const pendingApprovalIndex = "uq_approvals_one_pending_per_job"

// txQueries implements Queries on top of an open pgx transaction.
type txQueries struct {
	tx pgx.Tx
}

func (q *txQueries) GetJobForUpdate(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	job, err := scanJob(q.tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, jobID, tenantID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lock job: %w", err)
	}
	return job, err
}

func (q *txQueries) SetJobStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, at time.Time) error {
	tag, err := q.tx.Exec(ctx,
		`UPDATE jobs SET status = $2, updated_at = $3 WHERE id = $1`, jobID, status, at)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *txQueries) GetCustomerApproval(ctx context.Context, tenantID, customerID, approvalID uuid.UUID) (*models.Approval, error) {
	var a models.Approval
	err := q.tx.QueryRow(ctx,
		`SELECT a.id, a.job_id, a.status, a.requested_at, a.completed_at
		 FROM approvals a JOIN jobs j ON j.id = a.job_id
		 WHERE a.id = $1 AND j.tenant_id = $2 AND j.customer_id = $3`,
		approvalID, tenantID, customerID,
	).Scan(&a.ID, &a.JobID, &a.Status, &a.RequestedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return &a, nil
}

func (q *txQueries) CreateApproval(ctx context.Context, a *models.Approval) error {
	_, err := q.tx.Exec(ctx,
		`INSERT INTO approvals (id, job_id, status, requested_at, completed_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.JobID, a.Status, a.RequestedAt, a.CompletedAt)
	if err != nil {
		return mapWriteError("create approval", err)
	}
	return nil
}

func (q *txQueries) ResolvePendingApproval(ctx context.Context, p ResolveApprovalParams) (*models.Approval, error) {
	var a models.Approval
	err := q.tx.QueryRow(ctx,
		`UPDATE approvals a SET status = $4, completed_at = $5
		 FROM jobs j
		 WHERE a.id = $1 AND a.job_id = j.id
		   AND j.tenant_id = $2 AND j.customer_id = $3
		   AND a.status = 'PENDING'
		 RETURNING a.id, a.job_id, a.status, a.requested_at, a.completed_at`,
		p.ApprovalID, p.TenantID, p.CustomerID, p.Status, p.CompletedAt,
	).Scan(&a.ID, &a.JobID, &a.Status, &a.RequestedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	return &a, nil
}

func (q *txQueries) CreateApprovalReview(ctx context.Context, r *models.ApprovalReview) error {
	_, err := q.tx.Exec(ctx,
		`INSERT INTO approval_reviews (id, approval_id, reviewer_id, action, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.ApprovalID, r.ReviewerID, r.Action, r.Comment, r.CreatedAt)
	if err != nil {
		return mapWriteError("create approval review", err)
	}
	return nil
}

func (q *txQueries) CreateJobTextVersion(ctx context.Context, v *models.JobTextVersion) error {
	err := q.tx.QueryRow(ctx,
		`INSERT INTO job_text_versions (id, job_id, version, title, body, provider, model, created_at)
		 VALUES ($1, $2,
		         (SELECT COALESCE(MAX(version), 0) + 1 FROM job_text_versions WHERE job_id = $2),
		         $3, $4, $5, $6, $7)
		 RETURNING version`,
		v.ID, v.JobID, v.Title, v.Body, v.Provider, v.Model, v.CreatedAt,
	).Scan(&v.Version)
	if err != nil {
		return mapWriteError("create job text version", err)
	}
	return nil
}

var _ Queries = (*txQueries)(nil)
