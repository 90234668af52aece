package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/admin"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Directory is what the admin handlers need from the admin service.
type Directory interface {
	CreateCustomer(ctx context.Context, caller models.Caller, name string) (*models.Customer, error)
	ListCustomers(ctx context.Context, caller models.Caller) ([]*models.Customer, error)
	CreateUser(ctx context.Context, caller models.Caller, in admin.CreateUserInput) (*models.User, error)
	CreateAPIKey(ctx context.Context, caller models.Caller, userID uuid.UUID, name string) (*admin.CreatedKey, error)
	ListAPIKeys(ctx context.Context, caller models.Caller) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, caller models.Caller, keyID uuid.UUID) error
}

// NewCreateCustomerHandler returns an http.HandlerFunc for POST /api/admin/customers.
func NewCreateCustomerHandler(svc Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		customer, err := svc.CreateCustomer(r.Context(), caller, req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, customer)
	}
}

// NewListCustomersHandler returns an http.HandlerFunc for GET /api/admin/customers.
func NewListCustomersHandler(svc Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		customers, err := svc.ListCustomers(r.Context(), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.List(w, customers)
	}
}

// NewCreateUserHandler returns an http.HandlerFunc for POST /api/admin/users.
func NewCreateUserHandler(svc Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			Email      string      `json:"email"`
			Name       string      `json:"name"`
			Role       models.Role `json:"role"`
			CustomerID *uuid.UUID  `json:"customer_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		user, err := svc.CreateUser(r.Context(), caller, admin.CreateUserInput{
			Email:      req.Email,
			Name:       req.Name,
			Role:       req.Role,
			CustomerID: req.CustomerID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, user)
	}
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/admin/keys.
// The raw key is only ever returned by this response.
func NewCreateKeyHandler(svc Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			Name   string     `json:"name"`
			UserID *uuid.UUID `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		// Without user_id the key belongs to the calling admin.
		userID := caller.UserID
		if req.UserID != nil {
			userID = *req.UserID
		}

		key, err := svc.CreateAPIKey(r.Context(), caller, userID, req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, key)
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/admin/keys.
func NewListKeysHandler(svc Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		keys, err := svc.ListAPIKeys(r.Context(), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.List(w, keys)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/admin/keys/{keyID}.
func NewRevokeKeyHandler(svc Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		keyID, ok := uuidParam(w, r, "keyID")
		if !ok {
			return
		}

		if err := svc.RevokeAPIKey(r.Context(), caller, keyID); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}
