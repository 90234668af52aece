package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Approvals is what the customer portal handlers need from the lifecycle service.
type Approvals interface {
	ListPending(ctx context.Context, caller models.Caller) ([]*models.PendingApproval, error)
	Approve(ctx context.Context, caller models.Caller, approvalID uuid.UUID) (*models.Approval, error)
	Reject(ctx context.Context, caller models.Caller, approvalID uuid.UUID, comment string) (*models.Approval, error)
	GetJob(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.JobDetail, error)
}

type Analytics interface {
	CustomerAnalytics(ctx context.Context, caller models.Caller) (*models.CustomerAnalytics, error)
}

// NewListApprovalsHandler returns an http.HandlerFunc for GET /api/portal/approvals.
func NewListApprovalsHandler(svc Approvals) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		pending, err := svc.ListPending(r.Context(), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.List(w, pending)
	}
}

// NewApproveHandler returns an http.HandlerFunc for POST /api/portal/approvals/{approvalID}/approve.
func NewApproveHandler(svc Approvals) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		approvalID, ok := uuidParam(w, r, "approvalID")
		if !ok {
			return
		}

		approval, err := svc.Approve(r.Context(), caller, approvalID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, approval)
	}
}

type rejectRequest struct {
	Comment string `json:"comment"`
}

// NewRejectHandler returns an http.HandlerFunc for POST /api/portal/approvals/{approvalID}/reject.
func NewRejectHandler(svc Approvals) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		approvalID, ok := uuidParam(w, r, "approvalID")
		if !ok {
			return
		}

		var req rejectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		approval, err := svc.Reject(r.Context(), caller, approvalID, req.Comment)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, approval)
	}
}

// NewPortalJobHandler returns an http.HandlerFunc for GET /api/portal/jobs/{jobID}.
func NewPortalJobHandler(svc Approvals) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		detail, err := svc.GetJob(r.Context(), caller, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, detail)
	}
}

// NewAnalyticsHandler returns an http.HandlerFunc for GET /api/portal/analytics.
func NewAnalyticsHandler(svc Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		result, err := svc.CustomerAnalytics(r.Context(), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, result)
	}
}
