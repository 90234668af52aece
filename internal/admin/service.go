// Package admin manages the tenant directory: customers, users and the API
// keys they authenticate with.
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

// Store is the subset of store.Store administration needs.
type Store interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, tenantID uuid.UUID) ([]*models.Customer, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.User, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
	UpsertJobDailyMetric(ctx context.Context, metric *models.JobDailyMetric) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(st Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

type CreateUserInput struct {
	Email      string
	Name       string
	Role       models.Role
	CustomerID *uuid.UUID
}

// CreatedKey carries the raw key, which is never stored and shown only once.
type CreatedKey struct {
	models.APIKey
	RawKey string `json:"key"`
}

func requireAdmin(caller models.Caller) error {
	if caller.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *Service) CreateCustomer(ctx context.Context, caller models.Caller, name string) (*models.Customer, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	now := s.now()
	c := &models.Customer{ID: uuid.New(), TenantID: caller.TenantID, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, translate("create customer", err)
	}
	return c, nil
}

func (s *Service) ListCustomers(ctx context.Context, caller models.Caller) ([]*models.Customer, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	customers, err := s.store.ListCustomers(ctx, caller.TenantID)
	if err != nil {
		return nil, translate("list customers", err)
	}
	return customers, nil
}

// CreateUser adds a user to the caller's tenant. CUSTOMER users must be
// linked to a customer of the same tenant; staff users must not be.
func (s *Service) CreateUser(ctx context.Context, caller models.Caller, in CreateUserInput) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	in.Email = strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidArgument)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role must be one of ADMIN, MANAGER, MEMBER, CUSTOMER", ErrInvalidArgument)
	}
	switch {
	case in.Role == models.RoleCustomer && (in.CustomerID == nil || *in.CustomerID == uuid.Nil):
		return nil, fmt.Errorf("%w: customer_id is required for CUSTOMER users", ErrInvalidArgument)
	case in.Role != models.RoleCustomer && in.CustomerID != nil:
		return nil, fmt.Errorf("%w: customer_id is only allowed for CUSTOMER users", ErrInvalidArgument)
	}

	if in.CustomerID != nil {
		if _, err := s.store.GetCustomer(ctx, *in.CustomerID, caller.TenantID); err != nil {
			return nil, translate("load customer", err)
		}
	}

	now := s.now()
	u := &models.User{
		ID:         uuid.New(),
		TenantID:   caller.TenantID,
		Email:      in.Email,
		Name:       strings.TrimSpace(in.Name),
		Role:       in.Role,
		CustomerID: in.CustomerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, translate("create user", err)
	}
	return u, nil
}

// CreateAPIKey issues a key for a user of the caller's tenant.
func (s *Service) CreateAPIKey(ctx context.Context, caller models.Caller, userID uuid.UUID, name string) (*CreatedKey, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if _, err := s.store.GetUser(ctx, userID, caller.TenantID); err != nil {
		return nil, translate("load user", err)
	}
	return s.issueKey(ctx, caller.TenantID, userID, name)
}

func (s *Service) issueKey(ctx context.Context, tenantID, userID uuid.UUID, name string) (*CreatedKey, error) {
	raw, prefix, hash, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := models.APIKey{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAPIKey(ctx, &key); err != nil {
		return nil, translate("create api key", err)
	}
	return &CreatedKey{APIKey: key, RawKey: raw}, nil
}

func (s *Service) ListAPIKeys(ctx context.Context, caller models.Caller) ([]*models.APIKey, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	keys, err := s.store.ListAPIKeys(ctx, caller.TenantID)
	if err != nil {
		return nil, translate("list api keys", err)
	}
	return keys, nil
}

func (s *Service) RevokeAPIKey(ctx context.Context, caller models.Caller, keyID uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.RevokeAPIKey(ctx, keyID, caller.TenantID); err != nil {
		return translate("revoke api key", err)
	}
	return nil
}
