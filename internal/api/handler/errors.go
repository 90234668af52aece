package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/admin"
	"github.com/kiranshivaraju/rpohub/internal/analytics"
	mw "github.com/kiranshivaraju/rpohub/internal/api/middleware"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/internal/content"
	"github.com/kiranshivaraju/rpohub/internal/lifecycle"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// writeError maps service error kinds to the HTTP error envelope. Unknown
// errors are logged and reported as INTERNAL_ERROR without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, content.ErrNotFound),
		errors.Is(err, admin.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, lifecycle.ErrForbidden), errors.Is(err, content.ErrForbidden),
		errors.Is(err, analytics.ErrForbidden), errors.Is(err, admin.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", nil)
	case errors.Is(err, lifecycle.ErrInvalidArgument), errors.Is(err, admin.ErrInvalidArgument):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, lifecycle.ErrConflict), errors.Is(err, content.ErrConflict),
		errors.Is(err, admin.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

// callerFrom returns the authenticated caller or writes a 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	caller, ok := mw.GetCaller(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing caller", nil)
	}
	return caller, ok
}

// uuidParam parses a UUID path parameter or writes a 400.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
