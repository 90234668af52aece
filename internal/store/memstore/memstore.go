// Package memstore is an in-memory store.Store for unit tests. Transactions
// are serialized and roll back every write when the callback fails, and any
// method can be made to fail on demand.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

type metricKey struct {
	jobID uuid.UUID
	date  string
}

type state struct {
	tenants   map[uuid.UUID]models.Tenant
	customers map[uuid.UUID]models.Customer
	users     map[uuid.UUID]models.User
	keys      map[uuid.UUID]models.APIKey
	jobs      map[uuid.UUID]models.Job
	approvals map[uuid.UUID]models.Approval
	reviews   []models.ApprovalReview
	texts     []models.JobTextVersion
	images    []models.JobImageVersion
	metrics   map[metricKey]models.JobDailyMetric
}

func newState() state {
	return state{
		tenants:   map[uuid.UUID]models.Tenant{},
		customers: map[uuid.UUID]models.Customer{},
		users:     map[uuid.UUID]models.User{},
		keys:      map[uuid.UUID]models.APIKey{},
		jobs:      map[uuid.UUID]models.Job{},
		approvals: map[uuid.UUID]models.Approval{},
		metrics:   map[metricKey]models.JobDailyMetric{},
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.tenants {
		c.tenants[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.keys {
		c.keys[k] = v
	}
	for k, v := range st.jobs {
		c.jobs[k] = v
	}
	for k, v := range st.approvals {
		c.approvals[k] = v
	}
	for k, v := range st.metrics {
		c.metrics[k] = v
	}
	c.reviews = append([]models.ApprovalReview(nil), st.reviews...)
	c.texts = append([]models.JobTextVersion(nil), st.texts...)
	c.images = append([]models.JobImageVersion(nil), st.images...)
	return c
}

// Store implements store.Store in memory.
type Store struct {
	mu       sync.Mutex
	st       state
	failures map[string]error
	txCount  int
}

func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

// Fail makes every later call of the named method return err. Passing a nil
// error clears the failure.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Transactions returns how many InTx calls have committed.
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *Store) failure(method string) error {
	return s.failures[method]
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure("Ping")
}

func (s *Store) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InTx"); err != nil {
		return err
	}

	snapshot := s.st.clone()
	if err := fn(&queries{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	s.txCount++
	return nil
}

// --- Tenants, customers, users ---

func (s *Store) CreateTenant(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateTenant"); err != nil {
		return err
	}
	for _, existing := range s.st.tenants {
		if existing.Name == t.Name {
			return store.ErrDuplicateKey
		}
	}
	s.st.tenants[t.ID] = *t
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateCustomer"); err != nil {
		return err
	}
	if _, ok := s.st.tenants[c.TenantID]; !ok {
		return store.ErrInvalidReference
	}
	for _, existing := range s.st.customers {
		if existing.TenantID == c.TenantID && existing.Name == c.Name {
			return store.ErrDuplicateKey
		}
	}
	s.st.customers[c.ID] = *c
	return nil
}

func (s *Store) GetCustomer(_ context.Context, id, tenantID uuid.UUID) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetCustomer"); err != nil {
		return nil, err
	}
	c, ok := s.st.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCustomers(_ context.Context, tenantID uuid.UUID) ([]*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListCustomers"); err != nil {
		return nil, err
	}
	out := []*models.Customer{}
	for _, c := range s.st.customers {
		if c.TenantID == tenantID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateUser"); err != nil {
		return err
	}
	if _, ok := s.st.tenants[u.TenantID]; !ok {
		return store.ErrInvalidReference
	}
	if u.CustomerID != nil {
		if _, ok := s.st.customers[*u.CustomerID]; !ok {
			return store.ErrInvalidReference
		}
	}
	for _, existing := range s.st.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email {
			return store.ErrDuplicateKey
		}
	}
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id, tenantID uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetUser"); err != nil {
		return nil, err
	}
	u, ok := s.st.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// --- API keys ---

func (s *Store) GetAPIKeyOwnersByPrefix(_ context.Context, prefix string) ([]*models.KeyOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetAPIKeyOwnersByPrefix"); err != nil {
		return nil, err
	}
	var out []*models.KeyOwner
	for _, k := range s.st.keys {
		if k.KeyPrefix != prefix || k.DeletedAt != nil {
			continue
		}
		u, ok := s.st.users[k.UserID]
		if !ok {
			continue
		}
		out = append(out, &models.KeyOwner{Key: k, User: u})
	}
	return out, nil
}

func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateAPIKeyLastUsed"); err != nil {
		return err
	}
	k, ok := s.st.keys[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	s.st.keys[id] = k
	return nil
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateAPIKey"); err != nil {
		return err
	}
	if u, ok := s.st.users[key.UserID]; !ok || u.TenantID != key.TenantID {
		return store.ErrInvalidReference
	}
	for _, existing := range s.st.keys {
		if existing.TenantID == key.TenantID && existing.Name == key.Name && existing.DeletedAt == nil {
			return store.ErrDuplicateKey
		}
	}
	s.st.keys[key.ID] = *key
	return nil
}

func (s *Store) ListAPIKeys(_ context.Context, tenantID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListAPIKeys"); err != nil {
		return nil, err
	}
	out := []*models.APIKey{}
	for _, k := range s.st.keys {
		if k.TenantID == tenantID && k.DeletedAt == nil {
			k := k
			out = append(out, &k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RevokeAPIKey(_ context.Context, id, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("RevokeAPIKey"); err != nil {
		return err
	}
	k, ok := s.st.keys[id]
	if !ok || k.TenantID != tenantID || k.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	k.DeletedAt = &now
	s.st.keys[id] = k
	return nil
}

// --- Jobs ---

func (s *Store) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateJob"); err != nil {
		return err
	}
	c, ok := s.st.customers[job.CustomerID]
	if !ok || c.TenantID != job.TenantID {
		return store.ErrInvalidReference
	}
	s.st.jobs[job.ID] = *job
	return nil
}

func (s *Store) GetJob(_ context.Context, id, tenantID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetJob"); err != nil {
		return nil, err
	}
	j, ok := s.st.jobs[id]
	if !ok || j.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) GetCustomerJob(_ context.Context, tenantID, customerID, jobID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetCustomerJob"); err != nil {
		return nil, err
	}
	j, ok := s.st.jobs[jobID]
	if !ok || j.TenantID != tenantID || j.CustomerID != customerID {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

// --- Approvals ---

func (s *Store) reviewsOf(approvalID uuid.UUID) []*models.ApprovalReview {
	out := []*models.ApprovalReview{}
	for _, r := range s.st.reviews {
		if r.ApprovalID == approvalID {
			r := r
			out = append(out, &r)
		}
	}
	return out
}

func (s *Store) ListPendingApprovals(_ context.Context, tenantID, customerID uuid.UUID) ([]*models.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListPendingApprovals"); err != nil {
		return nil, err
	}
	out := []*models.PendingApproval{}
	for _, a := range s.st.approvals {
		if a.Status != models.ApprovalStatusPending {
			continue
		}
		j, ok := s.st.jobs[a.JobID]
		if !ok || j.TenantID != tenantID || j.CustomerID != customerID {
			continue
		}
		out = append(out, &models.PendingApproval{
			Approval: a,
			Job: models.JobSummary{
				ID:           j.ID,
				Title:        j.Title,
				Status:       j.Status,
				CustomerID:   j.CustomerID,
				CustomerName: s.st.customers[j.CustomerID].Name,
			},
			Reviews: s.reviewsOf(a.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (s *Store) ListJobApprovals(_ context.Context, jobID uuid.UUID, limit int) ([]*models.ApprovalWithReviews, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListJobApprovals"); err != nil {
		return nil, err
	}
	out := []*models.ApprovalWithReviews{}
	for _, a := range s.st.approvals {
		if a.JobID == jobID {
			out = append(out, &models.ApprovalWithReviews{Approval: a, Reviews: s.reviewsOf(a.ID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Content versions ---

func (s *Store) GetLatestTextVersion(_ context.Context, jobID uuid.UUID) (*models.JobTextVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetLatestTextVersion"); err != nil {
		return nil, err
	}
	var latest *models.JobTextVersion
	for _, v := range s.st.texts {
		if v.JobID == jobID && (latest == nil || v.Version > latest.Version) {
			v := v
			latest = &v
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (s *Store) GetLatestImageVersion(_ context.Context, jobID uuid.UUID) (*models.JobImageVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetLatestImageVersion"); err != nil {
		return nil, err
	}
	var latest *models.JobImageVersion
	for _, v := range s.st.images {
		if v.JobID == jobID && (latest == nil || v.Version > latest.Version) {
			v := v
			latest = &v
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

// AddImageVersion seeds an image version; images are written by an external pipeline.
func (s *Store) AddImageVersion(v models.JobImageVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.images = append(s.st.images, v)
}

// --- Metrics ---

func (s *Store) UpsertJobDailyMetric(_ context.Context, m *models.JobDailyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpsertJobDailyMetric"); err != nil {
		return err
	}
	if _, ok := s.st.jobs[m.JobID]; !ok {
		return store.ErrInvalidReference
	}
	s.st.metrics[metricKey{jobID: m.JobID, date: m.Date.Format(time.DateOnly)}] = *m
	return nil
}

func (s *Store) SumJobMetrics(_ context.Context, tenantID, customerID uuid.UUID) ([]*models.JobMetricTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SumJobMetrics"); err != nil {
		return nil, err
	}
	byJob := map[uuid.UUID]*models.JobMetricTotals{}
	var jobs []models.Job
	for _, j := range s.st.jobs {
		if j.TenantID == tenantID && j.CustomerID == customerID {
			jobs = append(jobs, j)
			byJob[j.ID] = &models.JobMetricTotals{JobID: j.ID, Title: j.Title}
		}
	}
	for k, m := range s.st.metrics {
		if t, ok := byJob[k.jobID]; ok {
			t.Impressions += m.Impressions
			t.Clicks += m.Clicks
			t.Applications += m.Applications
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	out := []*models.JobMetricTotals{}
	for _, j := range jobs {
		out = append(out, byJob[j.ID])
	}
	return out, nil
}

// --- Inspection helpers for assertions ---

// Job returns the stored job, or false.
func (s *Store) Job(id uuid.UUID) (models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.st.jobs[id]
	return j, ok
}

// Approval returns the stored approval, or false.
func (s *Store) Approval(id uuid.UUID) (models.Approval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.approvals[id]
	return a, ok
}

// Reviews returns every review of the approval in insertion order.
func (s *Store) Reviews(approvalID uuid.UUID) []models.ApprovalReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ApprovalReview
	for _, r := range s.st.reviews {
		if r.ApprovalID == approvalID {
			out = append(out, r)
		}
	}
	return out
}

// TextVersions returns every text version of the job in insertion order.
func (s *Store) TextVersions(jobID uuid.UUID) []models.JobTextVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.JobTextVersion
	for _, v := range s.st.texts {
		if v.JobID == jobID {
			out = append(out, v)
		}
	}
	return out
}

// PutApproval seeds an approval row as-is, bypassing the pending index.
func (s *Store) PutApproval(a models.Approval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.approvals[a.ID] = a
}

// PutJobStatus overwrites a job's status, bypassing the state machine.
func (s *Store) PutJobStatus(id uuid.UUID, status models.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.st.jobs[id]; ok {
		j.Status = status
		s.st.jobs[id] = j
	}
}

var _ store.Store = (*Store)(nil)
