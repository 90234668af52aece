package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleMember   Role = "MEMBER"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember, RoleCustomer:
		return true
	}
	return false
}

// IsStaff reports whether r belongs to the tenant's internal staff.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleMember
}

// User is an account within a tenant. CUSTOMER users are linked to exactly one customer.
type User struct {
	ID         uuid.UUID  `db:"id"          json:"id"`
	TenantID   uuid.UUID  `db:"tenant_id"   json:"tenant_id"`
	Email      string     `db:"email"       json:"email"`
	Name       string     `db:"name"        json:"name"`
	Role       Role       `db:"role"        json:"role"`
	CustomerID *uuid.UUID `db:"customer_id" json:"customer_id,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

// Caller identifies who is performing an operation. It is produced once by
// authentication and passed by value into every service call. Copies share
// the CustomerID pointee, so nothing may write through it.
type Caller struct {
	UserID     uuid.UUID
	TenantID   uuid.UUID
	Role       Role
	CustomerID *uuid.UUID
}

// PortalCustomer returns the caller's customer when the caller is a portal user.
func (c Caller) PortalCustomer() (uuid.UUID, bool) {
	if c.Role != RoleCustomer || c.CustomerID == nil || *c.CustomerID == uuid.Nil {
		return uuid.Nil, false
	}
	return *c.CustomerID, true
}
