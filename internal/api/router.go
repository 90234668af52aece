package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/rpohub/internal/api/middleware"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Metrics   mw.RequestObserver

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	// Customer portal
	ListApprovals    http.HandlerFunc
	ApproveHandler   http.HandlerFunc
	RejectHandler    http.HandlerFunc
	PortalJob        http.HandlerFunc
	AnalyticsHandler http.HandlerFunc

	// Staff
	CreateJob         http.HandlerFunc
	StaffJob          http.HandlerFunc
	TriggerGeneration http.HandlerFunc
	GenerationStatus  http.HandlerFunc
	SubmitForApproval http.HandlerFunc
	TransitionJob     http.HandlerFunc

	// Admin
	CreateCustomer   http.HandlerFunc
	ListCustomers    http.HandlerFunc
	CreateUser       http.HandlerFunc
	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if deps.Metrics != nil {
		r.Use(mw.Metrics(deps.Metrics))
	}

	// Public
	r.Get("/api/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/portal", func(r chi.Router) {
			r.Use(deps.Auth.RequireCustomer)

			r.Get("/approvals", orNotImplemented(deps.ListApprovals))
			r.Post("/approvals/{approvalID}/approve", orNotImplemented(deps.ApproveHandler))
			r.Post("/approvals/{approvalID}/reject", orNotImplemented(deps.RejectHandler))
			r.Get("/jobs/{jobID}", orNotImplemented(deps.PortalJob))
			r.Get("/analytics", orNotImplemented(deps.AnalyticsHandler))
		})

		r.Route("/api/jobs", func(r chi.Router) {
			r.Use(deps.Auth.RequireStaff)

			r.Post("/", orNotImplemented(deps.CreateJob))
			r.Get("/{jobID}", orNotImplemented(deps.StaffJob))
			r.Post("/{jobID}/generate", orNotImplemented(deps.TriggerGeneration))
			r.Get("/{jobID}/generate", orNotImplemented(deps.GenerationStatus))
			r.Post("/{jobID}/submit", orNotImplemented(deps.SubmitForApproval))
			r.Post("/{jobID}/status", orNotImplemented(deps.TransitionJob))
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(deps.Auth.RequireRole(models.RoleAdmin))

			r.Post("/customers", orNotImplemented(deps.CreateCustomer))
			r.Get("/customers", orNotImplemented(deps.ListCustomers))
			r.Post("/users", orNotImplemented(deps.CreateUser))
			r.Post("/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
