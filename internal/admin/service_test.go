package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store/memstore"
	"github.com/kiranshivaraju/rpohub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func bootstrapped(t *testing.T) (*Service, *memstore.Store, *BootstrapResult, models.Caller) {
	t.Helper()
	st := memstore.New()
	svc := NewService(st)

	res, err := svc.Bootstrap(context.Background(), "Talent Partners", "ops@talent.example")
	require.NoError(t, err)

	caller := models.Caller{UserID: res.Admin.ID, TenantID: res.Tenant.ID, Role: models.RoleAdmin}
	return svc, st, res, caller
}

func TestGenerateKey(t *testing.T) {
	raw, prefix, hash, err := GenerateKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "rpo_"))
	assert.Len(t, raw, len("rpo_")+2*keyRandBytes)
	assert.Equal(t, raw[:KeyPrefixLen], prefix)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)))

	other, _, _, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestBootstrap(t *testing.T) {
	_, st, res, _ := bootstrapped(t)

	assert.Equal(t, "Talent Partners", res.Tenant.Name)
	assert.Equal(t, models.RoleAdmin, res.Admin.Role)
	require.NotNil(t, res.Key)
	assert.NotEmpty(t, res.Key.RawKey)

	owners, err := st.GetAPIKeyOwnersByPrefix(context.Background(), res.Key.KeyPrefix)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, res.Admin.ID, owners[0].User.ID)
}

func TestBootstrap_DuplicateTenant(t *testing.T) {
	svc, _, _, _ := bootstrapped(t)

	_, err := svc.Bootstrap(context.Background(), "Talent Partners", "other@talent.example")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBootstrap_Validation(t *testing.T) {
	svc := NewService(memstore.New())

	_, err := svc.Bootstrap(context.Background(), " ", "ops@talent.example")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Bootstrap(context.Background(), "Tenant", "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCustomersAndUsers(t *testing.T) {
	svc, _, _, caller := bootstrapped(t)
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, caller, "  Acme  ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)

	_, err = svc.CreateCustomer(ctx, caller, "Acme")
	assert.ErrorIs(t, err, ErrConflict)

	list, err := svc.ListCustomers(ctx, caller)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	u, err := svc.CreateUser(ctx, caller, CreateUserInput{
		Email: "jane@acme.example", Name: "Jane", Role: models.RoleCustomer, CustomerID: &c.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, &c.ID, u.CustomerID)

	_, err = svc.CreateUser(ctx, caller, CreateUserInput{Email: "jane@acme.example", Role: models.RoleMember})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _, _, caller := bootstrapped(t)
	ctx := context.Background()
	foreign := uuid.New()

	tests := []struct {
		name string
		in   CreateUserInput
		want error
	}{
		{"bad email", CreateUserInput{Email: "nope", Role: models.RoleMember}, ErrInvalidArgument},
		{"bad role", CreateUserInput{Email: "a@b.example", Role: "OWNER"}, ErrInvalidArgument},
		{"customer without link", CreateUserInput{Email: "a@b.example", Role: models.RoleCustomer}, ErrInvalidArgument},
		{"staff with link", CreateUserInput{Email: "a@b.example", Role: models.RoleMember, CustomerID: &foreign}, ErrInvalidArgument},
		{"unknown customer", CreateUserInput{Email: "a@b.example", Role: models.RoleCustomer, CustomerID: &foreign}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, caller, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAPIKeys(t *testing.T) {
	svc, st, res, caller := bootstrapped(t)
	ctx := context.Background()

	key, err := svc.CreateAPIKey(ctx, caller, res.Admin.ID, "ci")
	require.NoError(t, err)
	assert.NotEmpty(t, key.RawKey)

	keys, err := svc.ListAPIKeys(ctx, caller)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, svc.RevokeAPIKey(ctx, caller, key.ID))
	owners, err := st.GetAPIKeyOwnersByPrefix(ctx, key.KeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, owners)

	assert.ErrorIs(t, svc.RevokeAPIKey(ctx, caller, key.ID), ErrNotFound)

	_, err = svc.CreateAPIKey(ctx, caller, uuid.New(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNonAdminForbidden(t *testing.T) {
	svc, _, _, caller := bootstrapped(t)
	ctx := context.Background()
	manager := caller
	manager.Role = models.RoleManager

	_, err := svc.CreateCustomer(ctx, manager, "Acme")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListCustomers(ctx, manager)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.CreateUser(ctx, manager, CreateUserInput{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.CreateAPIKey(ctx, manager, caller.UserID, "x")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListAPIKeys(ctx, manager)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.RevokeAPIKey(ctx, manager, uuid.New()), ErrForbidden)
}

func TestRecordMetric(t *testing.T) {
	svc, st, res, caller := bootstrapped(t)
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, caller, "Acme")
	require.NoError(t, err)
	job := &models.Job{ID: uuid.New(), TenantID: res.Tenant.ID, CustomerID: c.ID, Title: "Chef", Status: models.JobStatusPublished, CreatedBy: res.Admin.ID}
	require.NoError(t, st.CreateJob(ctx, job))

	day := time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	require.NoError(t, svc.RecordMetric(ctx, res.Tenant.ID, models.JobDailyMetric{JobID: job.ID, Date: day, Impressions: 100, Clicks: 7}))
	// Same day again overwrites instead of adding.
	require.NoError(t, svc.RecordMetric(ctx, res.Tenant.ID, models.JobDailyMetric{JobID: job.ID, Date: day, Impressions: 200, Clicks: 9}))

	totals, err := st.SumJobMetrics(ctx, res.Tenant.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(200), totals[0].Impressions)
	assert.Equal(t, int64(9), totals[0].Clicks)

	err = svc.RecordMetric(ctx, res.Tenant.ID, models.JobDailyMetric{JobID: job.ID, Date: day, Clicks: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = svc.RecordMetric(ctx, uuid.New(), models.JobDailyMetric{JobID: job.ID, Date: day})
	assert.ErrorIs(t, err, ErrNotFound)
}
