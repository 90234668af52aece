package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/internal/lifecycle"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Jobs is what the staff handlers need from the lifecycle service.
type Jobs interface {
	CreateJob(ctx context.Context, caller models.Caller, in lifecycle.CreateJobInput) (*models.Job, error)
	GetStaffJob(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.JobDetail, error)
	SubmitForApproval(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.Approval, error)
	TransitionJob(ctx context.Context, caller models.Caller, jobID uuid.UUID, to models.JobStatus) (*models.Job, error)
}

type Generator interface {
	TriggerGeneration(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.GenerationStatus, error)
	GenerationStatus(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.GenerationStatus, error)
}

type createJobRequest struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Salary         string    `json:"salary"`
	EmploymentType string    `json:"employment_type"`
	Requirements   string    `json:"requirements"`
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/jobs.
func NewCreateJobHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}

		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.CreateJob(r.Context(), caller, lifecycle.CreateJobInput{
			CustomerID:     req.CustomerID,
			Title:          req.Title,
			Description:    req.Description,
			Location:       req.Location,
			Salary:         req.Salary,
			EmploymentType: req.EmploymentType,
			Requirements:   req.Requirements,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, job)
	}
}

// NewStaffJobHandler returns an http.HandlerFunc for GET /api/jobs/{jobID}.
func NewStaffJobHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		detail, err := svc.GetStaffJob(r.Context(), caller, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, detail)
	}
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/jobs/{jobID}/submit.
func NewSubmitHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		approval, err := svc.SubmitForApproval(r.Context(), caller, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, approval)
	}
}

type transitionRequest struct {
	Status models.JobStatus `json:"status"`
}

// NewTransitionHandler returns an http.HandlerFunc for POST /api/jobs/{jobID}/status.
func NewTransitionHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.TransitionJob(r.Context(), caller, jobID, req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewTriggerGenerationHandler returns an http.HandlerFunc for POST /api/jobs/{jobID}/generate.
// Generation runs in the background; the response carries the pending status.
func NewTriggerGenerationHandler(svc Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		status, err := svc.TriggerGeneration(r.Context(), caller, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, status)
	}
}

// NewGenerationStatusHandler returns an http.HandlerFunc for GET /api/jobs/{jobID}/generate.
func NewGenerationStatusHandler(svc Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		status, err := svc.GenerationStatus(r.Context(), caller, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, status)
	}
}
