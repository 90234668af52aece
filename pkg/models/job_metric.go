package models

import (
	"time"

	"github.com/google/uuid"
)

// JobDailyMetric is one day of channel performance for a job, written by connectors.
type JobDailyMetric struct {
	JobID        uuid.UUID `db:"job_id"       json:"job_id"`
	Date         time.Time `db:"date"         json:"date"`
	Impressions  int64     `db:"impressions"  json:"impressions"`
	Clicks       int64     `db:"clicks"       json:"clicks"`
	Applications int64     `db:"applications" json:"applications"`
}

// JobMetricTotals is the sum of all daily metrics of one job.
type JobMetricTotals struct {
	JobID        uuid.UUID
	Title        string
	Impressions  int64
	Clicks       int64
	Applications int64
}

// MetricSummary is the analytics row shape shared by per-job and total rows.
type MetricSummary struct {
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	Applications int64   `json:"applications"`
	AvgClickRate float64 `json:"avg_click_rate"`
}

type JobAnalytics struct {
	JobID uuid.UUID `json:"job_id"`
	Title string    `json:"title"`
	MetricSummary
}

// CustomerAnalytics aggregates the metrics of every job a customer owns.
type CustomerAnalytics struct {
	CustomerID uuid.UUID      `json:"customer_id"`
	Totals     MetricSummary  `json:"totals"`
	Jobs       []JobAnalytics `json:"jobs"`
}
