package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// queries runs inside InTx with the store mutex already held.
type queries struct {
	s *Store
}

func (q *queries) GetJobForUpdate(_ context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	if err := q.s.failure("GetJobForUpdate"); err != nil {
		return nil, err
	}
	j, ok := q.s.st.jobs[jobID]
	if !ok || j.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (q *queries) SetJobStatus(_ context.Context, jobID uuid.UUID, status models.JobStatus, at time.Time) error {
	if err := q.s.failure("SetJobStatus"); err != nil {
		return err
	}
	j, ok := q.s.st.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	j.Status = status
	j.UpdatedAt = at
	q.s.st.jobs[jobID] = j
	return nil
}

func (q *queries) GetCustomerApproval(_ context.Context, tenantID, customerID, approvalID uuid.UUID) (*models.Approval, error) {
	if err := q.s.failure("GetCustomerApproval"); err != nil {
		return nil, err
	}
	a, ok := q.s.st.approvals[approvalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	j, ok := q.s.st.jobs[a.JobID]
	if !ok || j.TenantID != tenantID || j.CustomerID != customerID {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (q *queries) CreateApproval(_ context.Context, a *models.Approval) error {
	if err := q.s.failure("CreateApproval"); err != nil {
		return err
	}
	if _, ok := q.s.st.jobs[a.JobID]; !ok {
		return store.ErrInvalidReference
	}
	if a.Status == models.ApprovalStatusPending {
		for _, existing := range q.s.st.approvals {
			if existing.JobID == a.JobID && existing.Status == models.ApprovalStatusPending {
				return store.ErrPendingApprovalExists
			}
		}
	}
	q.s.st.approvals[a.ID] = *a
	return nil
}

func (q *queries) ResolvePendingApproval(_ context.Context, p store.ResolveApprovalParams) (*models.Approval, error) {
	if err := q.s.failure("ResolvePendingApproval"); err != nil {
		return nil, err
	}
	a, ok := q.s.st.approvals[p.ApprovalID]
	if !ok || a.Status != models.ApprovalStatusPending {
		return nil, store.ErrNotFound
	}
	j, ok := q.s.st.jobs[a.JobID]
	if !ok || j.TenantID != p.TenantID || j.CustomerID != p.CustomerID {
		return nil, store.ErrNotFound
	}
	completed := p.CompletedAt
	a.Status = p.Status
	a.CompletedAt = &completed
	q.s.st.approvals[a.ID] = a
	return &a, nil
}

func (q *queries) CreateApprovalReview(_ context.Context, r *models.ApprovalReview) error {
	if err := q.s.failure("CreateApprovalReview"); err != nil {
		return err
	}
	if _, ok := q.s.st.approvals[r.ApprovalID]; !ok {
		return store.ErrInvalidReference
	}
	q.s.st.reviews = append(q.s.st.reviews, *r)
	return nil
}

func (q *queries) CreateJobTextVersion(_ context.Context, v *models.JobTextVersion) error {
	if err := q.s.failure("CreateJobTextVersion"); err != nil {
		return err
	}
	if _, ok := q.s.st.jobs[v.JobID]; !ok {
		return store.ErrInvalidReference
	}
	next := 1
	for _, existing := range q.s.st.texts {
		if existing.JobID == v.JobID && existing.Version >= next {
			next = existing.Version + 1
		}
	}
	v.Version = next
	q.s.st.texts = append(q.s.st.texts, *v)
	return nil
}

var _ store.Queries = (*queries)(nil)
