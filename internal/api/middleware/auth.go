package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// KeyPrefixLen is the number of leading characters of a raw key stored in
// clear for lookup.
const KeyPrefixLen = 8

// KeyStore is the subset of store.Store authentication needs.
type KeyStore interface {
	GetAPIKeyOwnersByPrefix(ctx context.Context, prefix string) ([]*models.KeyOwner, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
}

// Auth provides authentication and role-checking middleware.
type Auth struct {
	store KeyStore
}

func NewAuth(s KeyStore) *Auth {
	return &Auth{store: s}
}

// Authenticate validates the Bearer token, resolves the key to its user and
// stores the resulting Caller in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < KeyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		prefix := rawKey[:KeyPrefixLen]

		owners, err := a.store.GetAPIKeyOwnersByPrefix(r.Context(), prefix)
		if err != nil {
			slog.Error("api key lookup failed", "key_prefix", prefix, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		for _, owner := range owners {
			if bcrypt.CompareHashAndPassword([]byte(owner.Key.KeyHash), []byte(rawKey)) != nil {
				continue
			}

			ctx := SetCaller(r.Context(), owner.Caller())
			ctx = setKeyPrefix(ctx, prefix)

			keyID := owner.Key.ID
			go func() {
				if err := a.store.UpdateAPIKeyLastUsed(context.Background(), keyID); err != nil {
					slog.Warn("failed to update api key last_used_at", "key_id", keyID, "error", err)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		response.Error(w, http.StatusUnauthorized,
			"INVALID_TOKEN", "Invalid API key", nil)
	})
}

// RequireRole rejects callers whose role is not one of roles.
func (a *Auth) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return a.require(func(c models.Caller) bool {
		return slices.Contains(roles, c.Role)
	})
}

// RequireStaff admits ADMIN, MANAGER and MEMBER callers.
func (a *Auth) RequireStaff(next http.Handler) http.Handler {
	return a.require(func(c models.Caller) bool { return c.Role.IsStaff() })(next)
}

// RequireCustomer admits CUSTOMER callers linked to a customer.
func (a *Auth) RequireCustomer(next http.Handler) http.Handler {
	return a.require(func(c models.Caller) bool {
		_, ok := c.PortalCustomer()
		return ok
	})(next)
}

func (a *Auth) require(allowed func(models.Caller) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := GetCaller(r)
			if !ok || !allowed(caller) {
				response.Error(w, http.StatusForbidden,
					"FORBIDDEN", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
