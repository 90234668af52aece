// Package lifecycle owns the job approval lifecycle: customers approving or
// rejecting pending approvals, staff submitting jobs for review and driving
// the publishing edges of the job state machine.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// recentApprovalsLimit bounds the approval history returned with a job.
const recentApprovalsLimit = 5

// Store is the subset of store.Store the lifecycle needs.
type Store interface {
	InTx(ctx context.Context, fn func(q store.Queries) error) error
	GetCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Customer, error)
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetCustomerJob(ctx context.Context, tenantID, customerID, jobID uuid.UUID) (*models.Job, error)
	ListPendingApprovals(ctx context.Context, tenantID, customerID uuid.UUID) ([]*models.PendingApproval, error)
	ListJobApprovals(ctx context.Context, jobID uuid.UUID, limit int) ([]*models.ApprovalWithReviews, error)
	GetLatestTextVersion(ctx context.Context, jobID uuid.UUID) (*models.JobTextVersion, error)
	GetLatestImageVersion(ctx context.Context, jobID uuid.UUID) (*models.JobImageVersion, error)
}

// Emitter receives events after their transaction has committed.
type Emitter interface {
	Emit(event models.Event)
}

// Recorder counts approval resolutions.
type Recorder interface {
	RecordApproval(action, outcome string)
}

type nopEmitter struct{}

func (nopEmitter) Emit(models.Event) {}

type nopRecorder struct{}

func (nopRecorder) RecordApproval(string, string) {}

// Service implements the lifecycle operations. Every method takes the
// authenticated caller explicitly; nothing is read from the context.
type Service struct {
	store   Store
	events  Emitter
	metrics Recorder
	now     func() time.Time
}

// NewService creates a lifecycle Service. events and metrics may be nil.
func NewService(st Store, events Emitter, metrics Recorder) *Service {
	if events == nil {
		events = nopEmitter{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{
		store:   st,
		events:  events,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) emit(caller models.Caller, eventType string, jobID uuid.UUID, approvalID *uuid.UUID, at time.Time, data map[string]any) {
	s.events.Emit(models.Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   caller.TenantID,
		JobID:      jobID,
		ApprovalID: approvalID,
		ActorID:    caller.UserID,
		OccurredAt: at,
		Data:       data,
	})
}

// portalCustomer returns the caller's customer or ErrForbidden.
func portalCustomer(caller models.Caller) (uuid.UUID, error) {
	customerID, ok := caller.PortalCustomer()
	if !ok {
		return uuid.Nil, ErrForbidden
	}
	return customerID, nil
}

func requireStaff(caller models.Caller) error {
	if !caller.Role.IsStaff() {
		return ErrForbidden
	}
	return nil
}
