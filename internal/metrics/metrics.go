// Package metrics holds the Prometheus collectors exported on /metrics.
// Collectors live in a private registry so tests can build as many
// instances as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rpohub"

// Metrics implements the recorder interfaces of the lifecycle, content and
// events code paths.
type Metrics struct {
	registry *prometheus.Registry

	approvalsTotal   *prometheus.CounterVec
	generationsTotal *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_resolutions_total",
			Help:      "Approval approve/reject attempts by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
	m.generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_generations_total",
			Help:      "Content generation runs by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	m.eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Lifecycle events handed to the configured sink by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	m.registry.MustRegister(
		m.approvalsTotal,
		m.generationsTotal,
		m.eventsTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordApproval(action, outcome string) {
	m.approvalsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) RecordGeneration(provider, outcome string) {
	m.generationsTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordEvent(eventType, outcome string) {
	m.eventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// ObserveRequest records one served HTTP request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
