package admin

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// BootstrapResult is everything an operator needs to start using a new tenant.
type BootstrapResult struct {
	Tenant *models.Tenant
	Admin  *models.User
	Key    *CreatedKey
}

// Bootstrap creates a tenant with its first ADMIN user and API key. It is the
// only way to obtain the first key, so it runs without a caller.
func (s *Service) Bootstrap(ctx context.Context, tenantName, adminEmail string) (*BootstrapResult, error) {
	tenantName = strings.TrimSpace(tenantName)
	if tenantName == "" {
		return nil, fmt.Errorf("%w: tenant name is required", ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(adminEmail); err != nil {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidArgument)
	}

	now := s.now()
	tenant := &models.Tenant{ID: uuid.New(), Name: tenantName, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, translate("create tenant", err)
	}

	user := &models.User{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Email:     strings.TrimSpace(adminEmail),
		Name:      "Administrator",
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translate("create admin user", err)
	}

	key, err := s.issueKey(ctx, tenant.ID, user.ID, "bootstrap")
	if err != nil {
		return nil, err
	}
	return &BootstrapResult{Tenant: tenant, Admin: user, Key: key}, nil
}

// RecordMetric stores one day of job performance counters. Connectors own
// this data; the operator CLI uses it for backfills.
func (s *Service) RecordMetric(ctx context.Context, tenantID uuid.UUID, m models.JobDailyMetric) error {
	if m.Impressions < 0 || m.Clicks < 0 || m.Applications < 0 {
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidArgument)
	}
	if _, err := s.store.GetJob(ctx, m.JobID, tenantID); err != nil {
		return translate("load job", err)
	}
	m.Date = time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.store.UpsertJobDailyMetric(ctx, &m); err != nil {
		return translate("record metric", err)
	}
	return nil
}
