// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package metrics holds the Prometheus collectors of the service.
//
// Collectors are registered with the default registry through promauto and
// exposed on /metrics. Callers use the Record* helpers rather than touching
// the collectors directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of engagement store queries in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"query"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of failed engagement store queries",
		},
		[]string{"query"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Report Metrics
	PivotBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pivot_build_duration_seconds",
			Help:    "Time spent building a report from queried records",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"report"},
	)

	PivotReconciliationMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivot_reconciliation_mismatches_total",
			Help: "Total rows whose state and market rollups disagreed",
		},
		[]string{"report"},
	)

	// Nielsen Metrics
	NielsenReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nielsen_reports_generated_total",
			Help: "Total number of Nielsen report batches generated",
		},
		[]string{"status"}, // "success", "error"
	)

	NielsenDMARenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nielsen_dma_render_duration_seconds",
			Help:    "Time spent rendering one DMA section (table and chart)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Auth Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of signup, login and password reset attempts",
		},
		[]string{"flow", "outcome"}, // outcome: "success", "rejected", "error"
	)

	AuthLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Total number of accounts locked out after repeated failed logins",
		},
	)

	// Upstream Metrics
	UpstreamBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of S3 and SES calls",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Cache Metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"cache", "result"}, // "hit", "miss"
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of live entries per cache",
		},
		[]string{"cache"},
	)
)

// RecordDBQuery records one engagement store query.
func RecordDBQuery(query string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(query).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPivotBuild records the time to build report.
func RecordPivotBuild(report string, duration time.Duration) {
	PivotBuildDuration.WithLabelValues(report).Observe(duration.Seconds())
}

// RecordReconciliationMismatch counts n mismatched Total cells of report.
func RecordReconciliationMismatch(report string, n int) {
	if n <= 0 {
		return
	}
	PivotReconciliationMismatches.WithLabelValues(report).Add(float64(n))
}

// RecordNielsenReport records a finished report batch.
func RecordNielsenReport(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NielsenReportsGenerated.WithLabelValues(status).Inc()
}

// RecordDMARender records rendering of one DMA section.
func RecordDMARender(duration time.Duration) {
	NielsenDMARenderDuration.Observe(duration.Seconds())
}

// RecordAuthAttempt counts one auth flow attempt by outcome.
func RecordAuthAttempt(flow, outcome string) {
	AuthAttempts.WithLabelValues(flow, outcome).Inc()
}

// RecordLockout counts one account lockout.
func RecordLockout() {
	AuthLockouts.Inc()
}

// SetBreakerState publishes the numeric state of an upstream breaker.
func SetBreakerState(name string, state int) {
	UpstreamBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordUpstream counts one call to an upstream with its result.
func RecordUpstream(name, result string) {
	UpstreamRequests.WithLabelValues(name, result).Inc()
}

// RecordCacheLookup counts one cache lookup.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// SetCacheEntries publishes the entry count of a cache.
func SetCacheEntries(cache string, n int) {
	CacheEntries.WithLabelValues(cache).Set(float64(n))
}
