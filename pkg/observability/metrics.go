package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the policy-decision engine
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Decision metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec

	// Entitlement metrics
	PlanFallbacksTotal   *prometheus.CounterVec
	PlanResolutionErrors prometheus.Counter

	// Usage metering metrics
	UsageRecordsTotal   *prometheus.CounterVec
	UsageRecordFailures prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. Passing nil uses a
// fresh registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankforge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankforge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankforge_decisions_total",
				Help: "Policy decisions by component, outcome, and denial reason",
			},
			[]string{"component", "outcome", "reason"},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankforge_decision_duration_seconds",
				Help:    "Policy decision evaluation duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"component"},
		),
		PlanFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankforge_plan_fallbacks_total",
				Help: "Entitlement resolutions that fell back to the default plan, by billing status",
			},
			[]string{"status"},
		),
		PlanResolutionErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rankforge_plan_resolution_errors_total",
				Help: "Entitlements referencing a plan id missing from the catalog",
			},
		),
		UsageRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankforge_usage_records_total",
				Help: "Usage deltas recorded, by feature",
			},
			[]string{"feature"},
		),
		UsageRecordFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rankforge_usage_record_failures_total",
				Help: "Usage delta writes that failed (and were swallowed)",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankforge_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankforge_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DecisionsTotal,
		m.DecisionDuration,
		m.PlanFallbacksTotal,
		m.PlanResolutionErrors,
		m.UsageRecordsTotal,
		m.UsageRecordFailures,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// ObserveDecision records a decision outcome for a component
func (m *Metrics) ObserveDecision(component string, allowed bool, reason string) {
	outcome := "allow"
	if !allowed {
		outcome = "deny"
	} else {
		reason = ""
	}
	m.DecisionsTotal.WithLabelValues(component, outcome, reason).Inc()
}

// Handler returns the HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
