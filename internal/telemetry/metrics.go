package telemetry

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks contract executions.
type Metrics struct {
	Executions       *prometheus.CounterVec
	ExecutionLatency prometheus.Histogram

	FuelConsumed  prometheus.Histogram
	FuelExhausted prometheus.Counter

	MaxCallDepth prometheus.Gauge
	HostCalls    *prometheus.CounterVec

	maxDepth atomic.Int64
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "total",
			Help:      "Top-level contract executions by status code.",
		}, []string{"code"}),
		ExecutionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "latency_seconds",
			Help:      "Top-level contract execution latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),

		FuelConsumed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fuel",
			Name:      "consumed",
			Help:      "Fuel consumed per frame.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		}),
		FuelExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fuel",
			Name:      "exhausted_total",
			Help:      "Frames trapped because they ran out of fuel.",
		}),

		MaxCallDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stack",
			Name:      "max_depth",
			Help:      "Deepest call stack reached.",
		}),
		HostCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "calls_total",
			Help:      "Host function calls by namespace.",
		}, []string{"namespace"}),
	}

	reg.MustRegister(
		m.Executions, m.ExecutionLatency,
		m.FuelConsumed, m.FuelExhausted,
		m.MaxCallDepth, m.HostCalls,
	)

	return m
}

// NopMetrics returns a Metrics instance whose observations go nowhere.
func NopMetrics() *Metrics {
	return &Metrics{
		Executions:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "nop_ex"}, []string{"code"}),
		ExecutionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nop_el"}),
		FuelConsumed:     prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nop_fc"}),
		FuelExhausted:    prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_fe"}),
		MaxCallDepth:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "nop_md"}),
		HostCalls:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "nop_hc"}, []string{"namespace"}),
		registry:         prometheus.NewRegistry(),
	}
}

// Registry returns the Prometheus registry for this metrics instance.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveExecution records a finished top-level execution.
func (m *Metrics) ObserveExecution(code int32, elapsed time.Duration) {
	m.Executions.WithLabelValues(strconv.FormatInt(int64(code), 10)).Inc()
	m.ExecutionLatency.Observe(elapsed.Seconds())
}

// ObserveFrame records the fuel accounting of one finished frame.
func (m *Metrics) ObserveFrame(fuel uint64, exhausted bool) {
	m.FuelConsumed.Observe(float64(fuel))
	if exhausted {
		m.FuelExhausted.Inc()
	}
}

// ObserveDepth raises MaxCallDepth when depth is a new maximum.
func (m *Metrics) ObserveDepth(depth int) {
	d := int64(depth)
	for {
		cur := m.maxDepth.Load()
		if d <= cur {
			return
		}
		if m.maxDepth.CompareAndSwap(cur, d) {
			m.MaxCallDepth.Set(float64(d))
			return
		}
	}
}

func (m *Metrics) HostCall(namespace string) {
	m.HostCalls.WithLabelValues(namespace).Inc()
}
