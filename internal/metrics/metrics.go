package metrics

import (
	"errors"
	"time"

	"smallurl/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All collectors register with the default registry through promauto.

var (
	// ==================== HTTP METRICS ====================

	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsTotal counts total HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsInFlight tracks currently processing requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// ==================== SHORTENER METRICS ====================

	// URLsCreatedTotal counts mappings whose short code was backfilled
	URLsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "urls_created_total",
			Help: "Total number of URLs shortened",
		},
	)

	// RedirectsTotal counts successful redirects
	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of successful redirects",
		},
	)

	// ResolveNotFoundTotal counts resolves that ended in not-found, by stage
	ResolveNotFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_not_found_total",
			Help: "Total number of short code lookups that found nothing",
		},
		[]string{"reason"}, // empty, undecodable, unmatched
	)

	// PendingMappingsTotal counts mappings left without a short code because
	// the backfill write failed
	PendingMappingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_mappings_total",
			Help: "Total number of mappings whose short code backfill failed",
		},
	)

	// ==================== DATABASE METRICS ====================

	// DatabaseQueryDuration tracks store latency
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	// DatabaseErrorsTotal counts store errors
	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"backend", "operation"},
	)
)

// RecordURLCreated increments URL creation counter
func RecordURLCreated() {
	URLsCreatedTotal.Inc()
}

// RecordRedirect increments redirect counter
func RecordRedirect() {
	RedirectsTotal.Inc()
}

// RecordNotFound increments the not-found counter for reason
func RecordNotFound(reason string) {
	ResolveNotFoundTotal.WithLabelValues(reason).Inc()
}

// RecordPendingMapping increments the orphaned mapping counter
func RecordPendingMapping() {
	PendingMappingsTotal.Inc()
}

// ObserveQuery records the latency of one store call and counts it as an
// error when err is non-nil. Not-found is a normal outcome, not an error.
//
//	defer func(start time.Time) { metrics.ObserveQuery("postgres", "create", start, err) }(time.Now())
func ObserveQuery(backend, operation string, start time.Time, err error) {
	DatabaseQueryDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		DatabaseErrorsTotal.WithLabelValues(backend, operation).Inc()
	}
}
