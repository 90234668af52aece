// Package analytics aggregates channel performance of a customer's jobs.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/cache"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrUnavailable = errors.New("persistence unavailable")
)

// Store is the subset of store.Store analytics reads from.
type Store interface {
	SumJobMetrics(ctx context.Context, tenantID, customerID uuid.UUID) ([]*models.JobMetricTotals, error)
}

// Cache is the subset of cache.Cache used for read-through caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Service struct {
	store Store
	cache Cache
	ttl   time.Duration
}

// NewService creates an analytics Service. A nil cache or a zero ttl
// disables caching.
func NewService(st Store, c Cache, ttl time.Duration) *Service {
	return &Service{store: st, cache: c, ttl: ttl}
}

// CustomerAnalytics returns per-job and total metrics for the caller's customer.
// Cache failures are logged and fall through to the database.
func (s *Service) CustomerAnalytics(ctx context.Context, caller models.Caller) (*models.CustomerAnalytics, error) {
	customerID, ok := caller.PortalCustomer()
	if !ok {
		return nil, ErrForbidden
	}

	key := cache.AnalyticsKey(caller.TenantID, customerID)
	if s.cachingEnabled() {
		if data, found, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("analytics cache read failed", "key", key, "error", err)
		} else if found {
			var cached models.CustomerAnalytics
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
			slog.Warn("analytics cache entry corrupt", "key", key)
		}
	}

	totals, err := s.store.SumJobMetrics(ctx, caller.TenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: sum job metrics: %v", ErrUnavailable, err)
	}
	result := Aggregate(customerID, totals)

	if s.cachingEnabled() {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				slog.Warn("analytics cache write failed", "key", key, "error", err)
			}
		}
	}
	return result, nil
}

func (s *Service) cachingEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// Aggregate builds the per-job rows and the totals row from summed metrics.
func Aggregate(customerID uuid.UUID, totals []*models.JobMetricTotals) *models.CustomerAnalytics {
	out := &models.CustomerAnalytics{
		CustomerID: customerID,
		Jobs:       make([]models.JobAnalytics, 0, len(totals)),
	}
	for _, t := range totals {
		out.Jobs = append(out.Jobs, models.JobAnalytics{
			JobID: t.JobID,
			Title: t.Title,
			MetricSummary: models.MetricSummary{
				Impressions:  t.Impressions,
				Clicks:       t.Clicks,
				Applications: t.Applications,
				AvgClickRate: ClickRate(t.Clicks, t.Impressions),
			},
		})
		out.Totals.Impressions += t.Impressions
		out.Totals.Clicks += t.Clicks
		out.Totals.Applications += t.Applications
	}
	out.Totals.AvgClickRate = ClickRate(out.Totals.Clicks, out.Totals.Impressions)
	return out
}

// ClickRate is clicks per hundred impressions rounded to two decimals, or 0
// when there are no impressions.
func ClickRate(clicks, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	rate := float64(clicks) / float64(impressions) * 100
	return math.Round(rate*100) / 100
}
