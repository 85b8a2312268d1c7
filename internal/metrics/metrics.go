// Package metrics declares the Prometheus collectors this gateway
// exports, grouped by the component that updates them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts completed edge requests by route and
	// outcome class.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_http_requests_total",
			Help: "Total number of HTTP requests handled by the edge router",
		},
		[]string{"route", "status_class"},
	)

	// HTTPRequestDuration tracks edge-to-client latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routecodex_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route"},
	)

	// UpstreamRequestsTotal counts pipeline dispatch outcomes by provider.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_upstream_requests_total",
			Help: "Total number of upstream provider dispatches",
		},
		[]string{"provider_key", "status_class"},
	)

	// UpstreamRequestDuration tracks provider dispatch latency.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routecodex_upstream_request_duration_seconds",
			Help:    "Upstream provider dispatch latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider_key"},
	)

	// RateLimitEscalationsTotal counts C2 bucket escalations to fatal.
	RateLimitEscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "routecodex_ratelimit_escalations_total",
			Help: "Total number of rate-limit buckets escalated to fatal",
		},
	)

	// PoolPicksTotal counts C12 picks by route and cooldown outcome.
	PoolPicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_pool_picks_total",
			Help: "Total number of pool picks by route and cooldown state",
		},
		[]string{"route", "cooling"},
	)

	// CredentialRefreshesTotal counts C4 OAuth refresh attempts.
	CredentialRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_credential_refreshes_total",
			Help: "Total number of credential token refresh attempts",
		},
		[]string{"vendor", "status"},
	)
)

// StatusClass buckets an HTTP status into the "2xx"/"4xx"/"5xx" label
// value used by the counters above.
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
