package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// createTestMetrics creates metrics on a private registry so tests do not
// collide with the default one.
func createTestMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry("test", reg), reg
}

func TestRecordHTTPRequest(t *testing.T) {
	m, _ := createTestMetrics()

	m.RecordHTTPRequest("POST", "/api/v1/enhance", 200, 100*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/enhance", 402, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/enhance", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/enhance", "4xx")))
}

func TestEnhancementMetrics(t *testing.T) {
	m, reg := createTestMetrics()

	m.RecordGeneration("real-esrgan", OutcomeSuccess)
	m.RecordGeneration("real-esrgan", OutcomeSuccess)
	m.RecordGeneration("real-esrgan", OutcomeQuotaExceeded)
	m.RecordProviderRetry("real-esrgan")
	m.RecordQuotaRejection("daily")
	m.RecordProviderRequest("remote-job", "real-esrgan", 2*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("real-esrgan", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("real-esrgan", OutcomeQuotaExceeded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRetriesTotal.WithLabelValues("real-esrgan")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotaRejectionsTotal.WithLabelValues("daily")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProviderRequestDuration))

	count, err := testutil.GatherAndCount(reg, "test_generation_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGeneration("x", OutcomeSuccess)
		m.RecordProviderRetry("x")
		m.RecordQuotaRejection("monthly")
		m.RecordProviderRequest("in-process", "x", time.Second)
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	})
}

func TestStatusCodeToString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{301, "3xx"},
		{422, "4xx"},
		{503, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusCodeToString(tt.code))
	}
}
