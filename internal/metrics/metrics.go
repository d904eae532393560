// Package metrics provides Prometheus metrics for the dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageRendersTotal counts page renders by page and outcome.
	PageRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "page_renders_total",
			Help:      "Total number of dashboard page renders",
		},
		[]string{"page", "status"},
	)

	// RenderDuration measures how long a page render takes.
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dashboard",
			Name:      "render_duration_seconds",
			Help:      "Duration of page renders in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"page"},
	)

	// LoadCacheTotal counts source loads served from or missing the cache.
	LoadCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "load_cache_total",
			Help:      "Total number of source loads by cache result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal counts HTTP requests by route template and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	// ActiveSessions tracks the number of live user sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "active_sessions",
			Help:      "Number of live dashboard sessions",
		},
	)
)

// RecordRender records one page render.
func RecordRender(page, status string, duration float64) {
	PageRendersTotal.WithLabelValues(page, status).Inc()
	RenderDuration.WithLabelValues(page).Observe(duration)
}

// RecordCacheHit records a load served from the cache.
func RecordCacheHit() {
	LoadCacheTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a load that had to read the source.
func RecordCacheMiss() {
	LoadCacheTotal.WithLabelValues("miss").Inc()
}

// RecordRequest records one HTTP request.
func RecordRequest(route, status string) {
	HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}
