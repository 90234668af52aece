package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn in a READ COMMITTED transaction. Conditional updates re-check
// their WHERE clause after waiting on a concurrent writer, which is what the
// PENDING guard on approvals relies on.
func (s *PostgresStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&txQueries{tx: tx})
	})
}

// --- Tenants, customers, users ---

func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return mapWriteError("create tenant", err)
	}
	return nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customers (id, tenant_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.TenantID, c.Name, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return mapWriteError("create customer", err)
	}
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, created_at, updated_at FROM customers WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context, tenantID uuid.UUID) ([]*models.Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, created_at, updated_at FROM customers WHERE tenant_id = $1 ORDER BY name`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []*models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, name, role, customer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.TenantID, u.Email, u.Name, u.Role, u.CustomerID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapWriteError("create user", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, email, name, role, customer_id, created_at, updated_at
		 FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.CustomerID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyOwnersByPrefix(ctx context.Context, prefix string) ([]*models.KeyOwner, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT k.id, k.tenant_id, k.user_id, k.name, k.key_hash, k.key_prefix, k.last_used_at, k.created_at, k.updated_at,
		        u.id, u.tenant_id, u.email, u.name, u.role, u.customer_id, u.created_at, u.updated_at
		 FROM api_keys k JOIN users u ON u.id = k.user_id
		 WHERE k.key_prefix = $1 AND k.deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key owners by prefix: %w", err)
	}
	defer rows.Close()

	var owners []*models.KeyOwner
	for rows.Next() {
		var o models.KeyOwner
		k, u := &o.Key, &o.User
		if err := rows.Scan(&k.ID, &k.TenantID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt,
			&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.CustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key owner: %w", err)
		}
		owners = append(owners, &o)
	}
	return owners, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, user_id, name, key_hash, key_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.TenantID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		return mapWriteError("create api key", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, user_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, id, tenantID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, tenant_id, customer_id, title, description, location, salary, employment_type,
	requirements, status, created_by, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.TenantID, &j.CustomerID, &j.Title, &j.Description, &j.Location,
		&j.Salary, &j.EmploymentType, &j.Requirements, &j.Status, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.TenantID, job.CustomerID, job.Title, job.Description, job.Location, job.Salary,
		job.EmploymentType, job.Requirements, job.Status, job.CreatedBy, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return mapWriteError("create job", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, err
}

func (s *PostgresStore) GetCustomerJob(ctx context.Context, tenantID, customerID, jobID uuid.UUID) (*models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND tenant_id = $2 AND customer_id = $3`,
		jobID, tenantID, customerID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get customer job: %w", err)
	}
	return job, err
}

// --- Approvals ---

func (s *PostgresStore) ListPendingApprovals(ctx context.Context, tenantID, customerID uuid.UUID) ([]*models.PendingApproval, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.job_id, a.status, a.requested_at, a.completed_at,
		        j.id, j.title, j.status, j.customer_id, c.name
		 FROM approvals a
		 JOIN jobs j ON j.id = a.job_id
		 JOIN customers c ON c.id = j.customer_id
		 WHERE j.tenant_id = $1 AND j.customer_id = $2 AND a.status = 'PENDING'
		 ORDER BY a.requested_at DESC`, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	pending := []*models.PendingApproval{}
	var ids []uuid.UUID
	for rows.Next() {
		var p models.PendingApproval
		if err := rows.Scan(&p.ID, &p.JobID, &p.Status, &p.RequestedAt, &p.CompletedAt,
			&p.Job.ID, &p.Job.Title, &p.Job.Status, &p.Job.CustomerID, &p.Job.CustomerName); err != nil {
			return nil, fmt.Errorf("scan pending approval: %w", err)
		}
		p.Reviews = []*models.ApprovalReview{}
		pending = append(pending, &p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}

	reviews, err := listReviews(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		if r, ok := reviews[p.ID]; ok {
			p.Reviews = r
		}
	}
	return pending, nil
}

func (s *PostgresStore) ListJobApprovals(ctx context.Context, jobID uuid.UUID, limit int) ([]*models.ApprovalWithReviews, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, status, requested_at, completed_at
		 FROM approvals WHERE job_id = $1 ORDER BY requested_at DESC LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list job approvals: %w", err)
	}
	defer rows.Close()

	approvals := []*models.ApprovalWithReviews{}
	var ids []uuid.UUID
	for rows.Next() {
		var a models.ApprovalWithReviews
		if err := rows.Scan(&a.ID, &a.JobID, &a.Status, &a.RequestedAt, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Reviews = []*models.ApprovalReview{}
		approvals = append(approvals, &a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list job approvals: %w", err)
	}

	reviews, err := listReviews(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range approvals {
		if r, ok := reviews[a.ID]; ok {
			a.Reviews = r
		}
	}
	return approvals, nil
}

// listReviews loads the reviews of the given approvals, grouped by approval id.
func listReviews(ctx context.Context, q querier, approvalIDs []uuid.UUID) (map[uuid.UUID][]*models.ApprovalReview, error) {
	out := make(map[uuid.UUID][]*models.ApprovalReview, len(approvalIDs))
	if len(approvalIDs) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx,
		`SELECT id, approval_id, reviewer_id, action, comment, created_at
		 FROM approval_reviews WHERE approval_id = ANY($1) ORDER BY created_at`, approvalIDs)
	if err != nil {
		return nil, fmt.Errorf("list approval reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.ApprovalReview
		if err := rows.Scan(&r.ID, &r.ApprovalID, &r.ReviewerID, &r.Action, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval review: %w", err)
		}
		out[r.ApprovalID] = append(out[r.ApprovalID], &r)
	}
	return out, rows.Err()
}

// --- Content versions ---

func (s *PostgresStore) GetLatestTextVersion(ctx context.Context, jobID uuid.UUID) (*models.JobTextVersion, error) {
	var v models.JobTextVersion
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, version, title, body, provider, model, created_at
		 FROM job_text_versions WHERE job_id = $1 ORDER BY version DESC LIMIT 1`, jobID,
	).Scan(&v.ID, &v.JobID, &v.Version, &v.Title, &v.Body, &v.Provider, &v.Model, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest text version: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) GetLatestImageVersion(ctx context.Context, jobID uuid.UUID) (*models.JobImageVersion, error) {
	var v models.JobImageVersion
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, version, url, prompt, created_at
		 FROM job_image_versions WHERE job_id = $1 ORDER BY version DESC LIMIT 1`, jobID,
	).Scan(&v.ID, &v.JobID, &v.Version, &v.URL, &v.Prompt, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest image version: %w", err)
	}
	return &v, nil
}

// --- Metrics ---

// UpsertJobDailyMetric records the counters of one job for one day, replacing
// any earlier report for the same day.
func (s *PostgresStore) UpsertJobDailyMetric(ctx context.Context, m *models.JobDailyMetric) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_daily_metrics (job_id, date, impressions, clicks, applications)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_id, date) DO UPDATE
		 SET impressions = EXCLUDED.impressions, clicks = EXCLUDED.clicks, applications = EXCLUDED.applications`,
		m.JobID, m.Date, m.Impressions, m.Clicks, m.Applications)
	if err != nil {
		return mapWriteError("upsert job daily metric", err)
	}
	return nil
}

// SumJobMetrics returns one row per job of the customer, including jobs that
// have no daily metrics yet (all zeros).
func (s *PostgresStore) SumJobMetrics(ctx context.Context, tenantID, customerID uuid.UUID) ([]*models.JobMetricTotals, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT j.id, j.title,
		        COALESCE(SUM(m.impressions), 0)::BIGINT,
		        COALESCE(SUM(m.clicks), 0)::BIGINT,
		        COALESCE(SUM(m.applications), 0)::BIGINT
		 FROM jobs j
		 LEFT JOIN job_daily_metrics m ON m.job_id = j.id
		 WHERE j.tenant_id = $1 AND j.customer_id = $2
		 GROUP BY j.id, j.title, j.created_at
		 ORDER BY j.created_at DESC`, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("sum job metrics: %w", err)
	}
	defer rows.Close()

	totals := []*models.JobMetricTotals{}
	for rows.Next() {
		var t models.JobMetricTotals
		if err := rows.Scan(&t.JobID, &t.Title, &t.Impressions, &t.Clicks, &t.Applications); err != nil {
			return nil, fmt.Errorf("scan job metric totals: %w", err)
		}
		totals = append(totals, &t)
	}
	return totals, rows.Err()
}

// mapWriteError translates constraint violations into store sentinels.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if pgErr.ConstraintName == pendingApprovalIndex {
				return ErrPendingApprovalExists
			}
			return ErrDuplicateKey
		case pgerrcode.ForeignKeyViolation:
			return ErrInvalidReference
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
