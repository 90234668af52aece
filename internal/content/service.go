// Package content generates job posting copy with the configured LLM
// backend and stores each result as a new text version.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

const (
	statusTTL      = 30 * time.Minute
	maxTitleLength = 200
	maxBodyLength  = 8000
)

// Store is the subset of store.Store generation needs.
type Store interface {
	InTx(ctx context.Context, fn func(q store.Queries) error) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Customer, error)
	GetLatestTextVersion(ctx context.Context, jobID uuid.UUID) (*models.JobTextVersion, error)
}

// StatusCache keeps the progress record of generation runs.
type StatusCache interface {
	SetGenerationStatus(ctx context.Context, jobID uuid.UUID, status []byte, ttl time.Duration) error
	GetGenerationStatus(ctx context.Context, jobID uuid.UUID) ([]byte, bool, error)
}

type Emitter interface {
	Emit(event models.Event)
}

type Recorder interface {
	RecordGeneration(provider, outcome string)
}

// Service orchestrates background content generation.
type Service struct {
	gen     models.ContentGenerator
	store   Store
	cache   StatusCache
	events  Emitter
	metrics Recorder
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewService creates a content Service. events and metrics may be nil.
func NewService(gen models.ContentGenerator, st Store, ca StatusCache, events Emitter, metrics Recorder, timeout time.Duration) *Service {
	return &Service{
		gen:     gen,
		store:   st,
		cache:   ca,
		events:  events,
		metrics: metrics,
		timeout: timeout,
	}
}

// TriggerGeneration records a pending run for the job and starts generation
// in a background goroutine. It returns without waiting for the provider.
func (s *Service) TriggerGeneration(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.GenerationStatus, error) {
	if !caller.Role.IsStaff() {
		return nil, ErrForbidden
	}

	job, err := s.store.GetJob(ctx, jobID, caller.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading job: %v", ErrUnavailable, err)
	}
	if !generatable(job.Status) {
		return nil, fmt.Errorf("%w: job is %s", ErrConflict, job.Status)
	}

	current, err := s.readStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Active() {
		return nil, fmt.Errorf("%w: generation already %s", ErrConflict, current.State)
	}

	status := &models.GenerationStatus{
		JobID:     jobID,
		State:     models.GenerationPending,
		Provider:  s.gen.Name(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.writeStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("%w: recording status: %v", ErrUnavailable, err)
	}

	s.wg.Add(1)
	go s.runGeneration(caller, *job)

	return status, nil
}

// GenerationStatus returns the latest progress record for the job.
func (s *Service) GenerationStatus(ctx context.Context, caller models.Caller, jobID uuid.UUID) (*models.GenerationStatus, error) {
	if !caller.Role.IsStaff() {
		return nil, ErrForbidden
	}
	if _, err := s.store.GetJob(ctx, jobID, caller.TenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading job: %v", ErrUnavailable, err)
	}

	status, err := s.readStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, ErrNotFound
	}
	return status, nil
}

// Wait blocks until every running generation has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// runGeneration calls the provider and stores the result. It recovers from
// panics and always leaves the run completed or failed.
func (s *Service) runGeneration(caller models.Caller, job models.Job) {
	defer s.wg.Done()
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in runGeneration", "error", r, "job_id", job.ID)
			s.fail(ctx, job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	s.setState(ctx, job.ID, models.GenerationRunning, 0, "")

	req := models.GenerationRequest{Job: job}
	if customer, err := s.store.GetCustomer(ctx, job.CustomerID, job.TenantID); err == nil {
		req.CustomerName = customer.Name
	}
	if prev, err := s.store.GetLatestTextVersion(ctx, job.ID); err == nil {
		req.Previous = prev
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.gen.Generate(genCtx, req)
	if err != nil {
		s.fail(ctx, job.ID, err.Error())
		return
	}

	version := &models.JobTextVersion{
		ID:        uuid.New(),
		JobID:     job.ID,
		Title:     truncateString(text.Title, maxTitleLength),
		Body:      truncateString(text.Body, maxBodyLength),
		Provider:  s.gen.Name(),
		Model:     text.Model,
		CreatedAt: time.Now().UTC(),
	}
	if version.Title == "" {
		version.Title = truncateString(job.Title, maxTitleLength)
	}

	var from models.JobStatus
	err = s.store.InTx(ctx, func(q store.Queries) error {
		locked, err := q.GetJobForUpdate(ctx, job.TenantID, job.ID)
		if err != nil {
			return err
		}
		if !generatable(locked.Status) {
			return fmt.Errorf("%w: job moved to %s during generation", ErrConflict, locked.Status)
		}
		from = locked.Status
		if err := q.CreateJobTextVersion(ctx, version); err != nil {
			return err
		}
		if locked.Status == models.JobStatusDraft {
			return q.SetJobStatus(ctx, job.ID, models.JobStatusGenerated, version.CreatedAt)
		}
		return nil
	})
	if err != nil {
		s.fail(ctx, job.ID, fmt.Sprintf("storing result: %v", err))
		return
	}

	s.setState(ctx, job.ID, models.GenerationCompleted, version.Version, "")
	s.record("success")

	if s.events != nil {
		s.events.Emit(models.Event{
			ID:         uuid.New(),
			Type:       models.EventJobGenerated,
			TenantID:   job.TenantID,
			JobID:      job.ID,
			ActorID:    caller.UserID,
			OccurredAt: version.CreatedAt,
			Data: map[string]any{
				"version":  version.Version,
				"provider": version.Provider,
				"from":     from,
			},
		})
	}
}

func (s *Service) fail(ctx context.Context, jobID uuid.UUID, msg string) {
	slog.Warn("content generation failed", "job_id", jobID, "provider", s.gen.Name(), "error", msg)
	s.setState(ctx, jobID, models.GenerationFailed, 0, msg)
	s.record("failed")
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordGeneration(s.gen.Name(), outcome)
	}
}

func (s *Service) setState(ctx context.Context, jobID uuid.UUID, state models.GenerationState, version int, msg string) {
	status := &models.GenerationStatus{
		JobID:     jobID,
		State:     state,
		Provider:  s.gen.Name(),
		Version:   version,
		Error:     truncateString(msg, 500),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.writeStatus(ctx, status); err != nil {
		slog.Warn("failed to record generation status", "job_id", jobID, "state", state, "error", err)
	}
}

func (s *Service) writeStatus(ctx context.Context, status *models.GenerationStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.cache.SetGenerationStatus(ctx, status.JobID, data, statusTTL)
}

func (s *Service) readStatus(ctx context.Context, jobID uuid.UUID) (*models.GenerationStatus, error) {
	data, ok, err := s.cache.GetGenerationStatus(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading status: %v", ErrUnavailable, err)
	}
	if !ok {
		return nil, nil
	}
	var status models.GenerationStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("%w: decoding status: %v", ErrUnavailable, err)
	}
	return &status, nil
}

func generatable(status models.JobStatus) bool {
	return status == models.JobStatusDraft || status == models.JobStatusGenerated
}

// truncateString truncates s to at most maxLen bytes without splitting a rune.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}
