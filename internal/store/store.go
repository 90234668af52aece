package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidReference = errors.New("referenced resource does not exist")
var ErrPendingApprovalExists = errors.New("job already has a pending approval")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// InTx runs fn inside a single database transaction. The transaction
	// commits only when fn returns nil; any error rolls back every write.
	InTx(ctx context.Context, fn func(q Queries) error) error

	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, tenantID uuid.UUID) ([]*models.Customer, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.User, error)

	GetAPIKeyOwnersByPrefix(ctx context.Context, prefix string) ([]*models.KeyOwner, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetCustomerJob(ctx context.Context, tenantID, customerID, jobID uuid.UUID) (*models.Job, error)

	ListPendingApprovals(ctx context.Context, tenantID, customerID uuid.UUID) ([]*models.PendingApproval, error)
	ListJobApprovals(ctx context.Context, jobID uuid.UUID, limit int) ([]*models.ApprovalWithReviews, error)

	GetLatestTextVersion(ctx context.Context, jobID uuid.UUID) (*models.JobTextVersion, error)
	GetLatestImageVersion(ctx context.Context, jobID uuid.UUID) (*models.JobImageVersion, error)

	UpsertJobDailyMetric(ctx context.Context, metric *models.JobDailyMetric) error
	SumJobMetrics(ctx context.Context, tenantID, customerID uuid.UUID) ([]*models.JobMetricTotals, error)
}

// Queries are the statements that must run inside a transaction opened by InTx.
type Queries interface {
	// GetJobForUpdate loads a job and locks its row until the transaction ends.
	GetJobForUpdate(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error)
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, at time.Time) error

	// GetCustomerApproval reads an approval of one of the customer's jobs
	// without locking it.
	GetCustomerApproval(ctx context.Context, tenantID, customerID, approvalID uuid.UUID) (*models.Approval, error)

	// CreateApproval returns ErrPendingApprovalExists when the job already has
	// an open review cycle.
	CreateApproval(ctx context.Context, approval *models.Approval) error

	// ResolvePendingApproval moves a PENDING approval owned by the given
	// customer to its final status. It returns ErrNotFound when no row matched,
	// which covers unknown ids, other customers' approvals and approvals
	// already resolved by a concurrent request.
	ResolvePendingApproval(ctx context.Context, params ResolveApprovalParams) (*models.Approval, error)
	CreateApprovalReview(ctx context.Context, review *models.ApprovalReview) error

	// CreateJobTextVersion assigns the next version number for the job.
	CreateJobTextVersion(ctx context.Context, version *models.JobTextVersion) error
}

type ResolveApprovalParams struct {
	ApprovalID  uuid.UUID
	TenantID    uuid.UUID
	CustomerID  uuid.UUID
	Status      models.ApprovalStatus
	CompletedAt time.Time
}
