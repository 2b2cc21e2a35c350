package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeValidation    = "validation_error"
	OutcomeForbidden     = "forbidden"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeServerError   = "server_error"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Enhancement metrics
	GenerationsTotal        *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderRetriesTotal    *prometheus.CounterVec
	QuotaRejectionsTotal    *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance registered on reg.
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "enhancer"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_total",
				Help:      "Total number of generation requests by outcome",
			},
			[]string{"model", "outcome"},
		),
		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Provider call duration in seconds, including retries",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60, 90},
			},
			[]string{"provider", "model"},
		),
		ProviderRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Total number of retries caused by undersized provider output",
			},
			[]string{"model"},
		),
		QuotaRejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_rejections_total",
				Help:      "Total number of requests rejected by quota scope",
			},
			[]string{"scope"},
		),
	}
}

// --- Convenience methods ---
// All methods are safe on a nil *Metrics.

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records the outcome of a generation request.
func (m *Metrics) RecordGeneration(model, outcome string) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordProviderRequest records the duration of a provider dispatch.
func (m *Metrics) RecordProviderRequest(provider, model string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordProviderRetry records a retry after undersized output.
func (m *Metrics) RecordProviderRetry(model string) {
	if m == nil {
		return
	}
	m.ProviderRetriesTotal.WithLabelValues(model).Inc()
}

// RecordQuotaRejection records a quota rejection.
func (m *Metrics) RecordQuotaRejection(scope string) {
	if m == nil {
		return
	}
	m.QuotaRejectionsTotal.WithLabelValues(scope).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
