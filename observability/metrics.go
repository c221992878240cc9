package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolMetrics records lending pool API activity.
type PoolMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec

	oracleSubmissions *prometheus.CounterVec
	liquidations      prometheus.Counter
}

var (
	poolMetricsOnce sync.Once
	poolRegistry    *PoolMetrics
)

// Metrics returns the lazily-initialised pool metrics registry.
func Metrics() *PoolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &PoolMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by operation and status code.",
			}, []string{"operation", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendpool",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Requests rejected by per-client rate limiting.",
			}, []string{"operation"}),
			oracleSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "oracle",
				Name:      "submissions_total",
				Help:      "Oracle rate submissions segmented by asset and outcome.",
			}, []string{"asset", "outcome"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "pool",
				Name:      "liquidations_total",
				Help:      "Successful liquidation calls.",
			}),
		}
		prometheus.MustRegister(
			poolRegistry.requests,
			poolRegistry.errors,
			poolRegistry.latency,
			poolRegistry.throttles,
			poolRegistry.oracleSubmissions,
			poolRegistry.liquidations,
		)
	})
	return poolRegistry
}

// Observe records the outcome of one API request. status is the HTTP status
// ultimately written to the response.
func (m *PoolMetrics) Observe(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	operation = normalizeLabel(operation)
	outcome := "ok"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(operation, statusLabel(status)).Inc()
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveThrottle counts a rate-limited request.
func (m *PoolMetrics) ObserveThrottle(operation string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveOracleSubmission counts one rate submission for an asset.
func (m *PoolMetrics) ObserveOracleSubmission(asset string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.oracleSubmissions.WithLabelValues(normalizeLabel(asset), outcome).Inc()
}

// ObserveLiquidation counts one successful liquidation.
func (m *PoolMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "unknown"
	}
	return v
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
