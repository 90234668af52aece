package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/content/mock"
	"github.com/kiranshivaraju/rpohub/internal/store/memstore"
	"github.com/kiranshivaraju/rpohub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu      sync.Mutex
	data    map[uuid.UUID][]byte
	history []models.GenerationState
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[uuid.UUID][]byte{}}
}

func (c *fakeCache) SetGenerationStatus(_ context.Context, jobID uuid.UUID, status []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[jobID] = status
	for _, s := range []models.GenerationState{models.GenerationPending, models.GenerationRunning, models.GenerationCompleted, models.GenerationFailed} {
		if strings.Contains(string(status), `"state":"`+string(s)+`"`) {
			c.history = append(c.history, s)
		}
	}
	return nil
}

func (c *fakeCache) GetGenerationStatus(_ context.Context, jobID uuid.UUID) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[jobID]
	return v, ok, nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []models.Event
}

func (e *captureEmitter) Emit(ev models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

type captureRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *captureRecorder) RecordGeneration(provider, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, provider+"/"+outcome)
}

type env struct {
	svc    *Service
	st     *memstore.Store
	cache  *fakeCache
	events *captureEmitter
	rec    *captureRecorder

	tenantID   uuid.UUID
	customerID uuid.UUID
	staff      models.Caller
}

func newEnv(t *testing.T, gen models.ContentGenerator) *env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	tenant := &models.Tenant{ID: uuid.New(), Name: "rpo"}
	require.NoError(t, st.CreateTenant(ctx, tenant))
	customer := &models.Customer{ID: uuid.New(), TenantID: tenant.ID, Name: "Acme"}
	require.NoError(t, st.CreateCustomer(ctx, customer))

	e := &env{
		st:         st,
		cache:      newFakeCache(),
		events:     &captureEmitter{},
		rec:        &captureRecorder{},
		tenantID:   tenant.ID,
		customerID: customer.ID,
		staff:      models.Caller{UserID: uuid.New(), TenantID: tenant.ID, Role: models.RoleMember},
	}
	e.svc = NewService(gen, st, e.cache, e.events, e.rec, time.Second)
	return e
}

func (e *env) seedJob(t *testing.T, status models.JobStatus) *models.Job {
	t.Helper()
	job := &models.Job{
		ID: uuid.New(), TenantID: e.tenantID, CustomerID: e.customerID,
		Title: "Welder", Location: "Rotterdam", Status: status, CreatedBy: e.staff.UserID,
	}
	require.NoError(t, e.st.CreateJob(context.Background(), job))
	return job
}

func TestTriggerGeneration_DraftBecomesGenerated(t *testing.T) {
	e := newEnv(t, mock.NewProvider())
	job := e.seedJob(t, models.JobStatusDraft)

	status, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationPending, status.State)
	assert.Equal(t, "mock", status.Provider)

	e.svc.Wait()

	stored, _ := e.st.Job(job.ID)
	assert.Equal(t, models.JobStatusGenerated, stored.Status)

	versions := e.st.TextVersions(job.ID)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, "Acme is hiring a Welder. Location: Rotterdam.", versions[0].Body)
	assert.Equal(t, "mock-v1", versions[0].Model)

	got, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationCompleted, got.State)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, []models.GenerationState{
		models.GenerationPending, models.GenerationRunning, models.GenerationCompleted,
	}, e.cache.history)

	require.Len(t, e.events.events, 1)
	assert.Equal(t, models.EventJobGenerated, e.events.events[0].Type)
	assert.Equal(t, []string{"mock/success"}, e.rec.outcomes)
}

func TestTriggerGeneration_RegenerateKeepsStatusAndUsesPrevious(t *testing.T) {
	var seen *models.JobTextVersion
	gen := &mock.Provider{
		ProviderName: "mock",
		GenerateFunc: func(_ context.Context, req models.GenerationRequest) (models.GeneratedText, error) {
			seen = req.Previous
			return models.GeneratedText{Title: "t", Body: "b", Model: "m"}, nil
		},
	}
	e := newEnv(t, gen)
	job := e.seedJob(t, models.JobStatusDraft)

	_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	e.svc.Wait()

	_, err = e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	e.svc.Wait()

	require.NotNil(t, seen)
	assert.Equal(t, 1, seen.Version)
	assert.Len(t, e.st.TextVersions(job.ID), 2)

	stored, _ := e.st.Job(job.ID)
	assert.Equal(t, models.JobStatusGenerated, stored.Status)
}

func TestTriggerGeneration_RefusesOtherStatuses(t *testing.T) {
	e := newEnv(t, mock.NewProvider())
	for _, status := range []models.JobStatus{
		models.JobStatusPendingApproval, models.JobStatusApproved, models.JobStatusPublished,
	} {
		job := e.seedJob(t, status)
		_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
		assert.ErrorIs(t, err, ErrConflict, status)
	}
}

func TestTriggerGeneration_RefusesWhileActive(t *testing.T) {
	e := newEnv(t, mock.NewTimeoutProvider())
	e.svc.timeout = 100 * time.Millisecond
	job := e.seedJob(t, models.JobStatusDraft)

	_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)

	_, err = e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	assert.ErrorIs(t, err, ErrConflict)

	e.svc.Wait()
}

func TestTriggerGeneration_Authorization(t *testing.T) {
	e := newEnv(t, mock.NewProvider())
	job := e.seedJob(t, models.JobStatusDraft)

	portal := models.Caller{UserID: uuid.New(), TenantID: e.tenantID, Role: models.RoleCustomer, CustomerID: &e.customerID}
	_, err := e.svc.TriggerGeneration(context.Background(), portal, job.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	otherTenant := models.Caller{UserID: uuid.New(), TenantID: uuid.New(), Role: models.RoleAdmin}
	_, err = e.svc.TriggerGeneration(context.Background(), otherTenant, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTriggerGeneration_ProviderFailure(t *testing.T) {
	e := newEnv(t, mock.NewFailingProvider(errors.New("model overloaded")))
	job := e.seedJob(t, models.JobStatusDraft)

	_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	e.svc.Wait()

	got, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationFailed, got.State)
	assert.Contains(t, got.Error, "model overloaded")

	stored, _ := e.st.Job(job.ID)
	assert.Equal(t, models.JobStatusDraft, stored.Status)
	assert.Empty(t, e.st.TextVersions(job.ID))
	assert.Empty(t, e.events.events)
	assert.Equal(t, []string{"mock-failing/failed"}, e.rec.outcomes)
}

func TestTriggerGeneration_Timeout(t *testing.T) {
	e := newEnv(t, mock.NewTimeoutProvider())
	e.svc.timeout = 20 * time.Millisecond
	job := e.seedJob(t, models.JobStatusDraft)

	_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	e.svc.Wait()

	got, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationFailed, got.State)
}

func TestTriggerGeneration_PanicMarksFailed(t *testing.T) {
	gen := &mock.Provider{
		ProviderName: "mock",
		GenerateFunc: func(context.Context, models.GenerationRequest) (models.GeneratedText, error) {
			panic("provider bug")
		},
	}
	e := newEnv(t, gen)
	job := e.seedJob(t, models.JobStatusDraft)

	_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	e.svc.Wait()

	got, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationFailed, got.State)
	assert.Contains(t, got.Error, "panic: provider bug")
}

func TestTriggerGeneration_JobMovedDuringGeneration(t *testing.T) {
	e := newEnv(t, nil)
	job := e.seedJob(t, models.JobStatusGenerated)
	e.svc.gen = &mock.Provider{
		ProviderName: "mock",
		GenerateFunc: func(context.Context, models.GenerationRequest) (models.GeneratedText, error) {
			e.st.PutJobStatus(job.ID, models.JobStatusPendingApproval)
			return models.GeneratedText{Title: "t", Body: "b"}, nil
		},
	}

	_, err := e.svc.TriggerGeneration(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	e.svc.Wait()

	assert.Empty(t, e.st.TextVersions(job.ID))
	got, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationFailed, got.State)
}

func TestGenerationStatus_NotFoundWithoutRun(t *testing.T) {
	e := newEnv(t, mock.NewProvider())
	job := e.seedJob(t, models.JobStatusDraft)

	_, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerationStatus_CacheFailure(t *testing.T) {
	e := newEnv(t, mock.NewProvider())
	job := e.seedJob(t, models.JobStatusDraft)
	e.cache.getErr = errors.New("connection refused")

	_, err := e.svc.GenerationStatus(context.Background(), e.staff, job.ID)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 10))
	assert.Equal(t, "ab", truncateString("abc", 2))
	// "é" is two bytes; cutting inside it drops the whole rune.
	assert.Equal(t, "a", truncateString("aé", 2))
	assert.Equal(t, "aé", truncateString("aé", 3))
}
