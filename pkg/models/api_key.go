package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a bearer credential bound to a single user.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	TenantID   uuid.UUID  `db:"tenant_id"    json:"tenant_id"`
	UserID     uuid.UUID  `db:"user_id"      json:"user_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}

// KeyOwner is an API key joined with the identity of the user it belongs to.
type KeyOwner struct {
	Key  APIKey
	User User
}

// Caller returns the caller context for requests authenticated with this key.
func (o KeyOwner) Caller() Caller {
	return Caller{
		UserID:     o.User.ID,
		TenantID:   o.User.TenantID,
		Role:       o.User.Role,
		CustomerID: o.User.CustomerID,
	}
}
