package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the single sample of a gathered family. For
// histograms it is the sample count.
func sample(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for i, l := range m.GetLabel() {
				if i*2+1 >= len(labels) || l.GetName() != labels[i*2] || l.GetValue() != labels[i*2+1] {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestNewMetricsRegistersAll(t *testing.T) {
	m := NewMetrics("test")
	require.NotNil(t, m.Registry())

	m.ObserveExecution(0, time.Millisecond)
	m.HostCall("env0")
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()

	// NopMetrics should not panic when used.
	m.ObserveExecution(111, time.Second)
	m.ObserveFrame(10, true)
	m.ObserveDepth(3)
	m.HostCall("env1")
}

func TestObserveExecutionByCode(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveExecution(0, time.Millisecond)
	m.ObserveExecution(0, time.Millisecond)
	m.ObserveExecution(111, time.Millisecond)

	assert.Equal(t, 2.0, sample(t, m.Registry(), "test_execution_total", "code", "0"))
	assert.Equal(t, 1.0, sample(t, m.Registry(), "test_execution_total", "code", "111"))
	assert.Equal(t, 3.0, sample(t, m.Registry(), "test_execution_latency_seconds"))
}

func TestObserveFrame(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveFrame(100, false)
	m.ObserveFrame(5, true)

	assert.Equal(t, 1.0, sample(t, m.Registry(), "test_fuel_exhausted_total"))
	assert.Equal(t, 2.0, sample(t, m.Registry(), "test_fuel_consumed"))
}

func TestObserveDepthKeepsMaximum(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveDepth(2)
	m.ObserveDepth(5)
	m.ObserveDepth(3)

	assert.Equal(t, 5.0, sample(t, m.Registry(), "test_stack_max_depth"))
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics("wevm")
	m.HostCall("env0")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `wevm_host_calls_total{namespace="env0"} 1`)
}

func TestNewLogger(t *testing.T) {
	for _, mode := range []string{"development", "dev", "production", "prod", "nop"} {
		t.Run(mode, func(t *testing.T) {
			logger, err := NewLogger(mode)
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestNewLoggerInvalid(t *testing.T) {
	_, err := NewLogger("invalid")
	require.Error(t, err)
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger)
	// Should not panic.
	logger.Info("test message")
}
