package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can take one unconditionally.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Window context metrics
	ContextsActive    prometheus.Gauge
	ContextsCreated   prometheus.Counter
	BootstrapDuration prometheus.Histogram
	Evaluations       *prometheus.CounterVec
	EvalDuration      *prometheus.HistogramVec
	RetainedHandles   prometheus.Gauge

	// Window manager metrics
	WindowsActive prometheus.Gauge

	// Script loader metrics
	ScriptsLoaded *prometheus.CounterVec

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	ActiveContexts  int64   `json:"active_contexts"`
	ActiveWindows   int64   `json:"active_windows"`
	Evaluations     int64   `json:"evaluations"`
	FailedEvals     int64   `json:"failed_evaluations"`
	RetainedHandles int64   `json:"retained_handles"`
	TotalDuration   float64 `json:"total_duration_seconds"` // sum of all request durations
	RequestCount    int64   `json:"request_count"`          // count for averaging
}

// NewMetrics creates a metrics collector registered with reg. A nil reg
// uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowctx_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowctx_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowctx_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowctx_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Window context metrics
		ContextsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowctx_contexts_active",
				Help: "Number of open window contexts",
			},
		),
		ContextsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "windowctx_contexts_created_total",
				Help: "Total number of window contexts created",
			},
		),
		BootstrapDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "windowctx_bootstrap_duration_seconds",
				Help:    "Window context bootstrap duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowctx_evaluations_total",
				Help: "Total number of evaluations",
			},
			[]string{"kind", "status"},
		),
		EvalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowctx_evaluation_duration_seconds",
				Help:    "Evaluation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"kind"},
		),
		RetainedHandles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowctx_retained_handles",
				Help: "Number of values retained for window properties",
			},
		),

		// Window manager metrics
		WindowsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowctx_windows_active",
				Help: "Number of managed windows",
			},
		),

		// Script loader metrics
		ScriptsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowctx_scripts_loaded_total",
				Help: "Total number of page scripts run",
			},
			[]string{"source", "status"},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// ContextCreated records a bootstrapped window context
func (m *Metrics) ContextCreated(bootstrap time.Duration) {
	if m == nil {
		return
	}
	m.ContextsCreated.Inc()
	m.ContextsActive.Inc()
	m.BootstrapDuration.Observe(bootstrap.Seconds())

	m.mu.Lock()
	m.snapshot.ActiveContexts++
	m.mu.Unlock()
}

// ContextClosed records a closed window context
func (m *Metrics) ContextClosed() {
	if m == nil {
		return
	}
	m.ContextsActive.Dec()

	m.mu.Lock()
	m.snapshot.ActiveContexts--
	m.mu.Unlock()
}

// EvaluationDone records one evaluation. A zero duration means it never ran.
func (m *Metrics) EvaluationDone(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(kind, status).Inc()
	if duration > 0 {
		m.EvalDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}

	m.mu.Lock()
	m.snapshot.Evaluations++
	if status != "ok" {
		m.snapshot.FailedEvals++
	}
	m.mu.Unlock()
}

// AddRetainedHandles adjusts the retained handle gauge
func (m *Metrics) AddRetainedHandles(delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.RetainedHandles.Add(float64(delta))

	m.mu.Lock()
	m.snapshot.RetainedHandles += int64(delta)
	m.mu.Unlock()
}

// SetWindowsActive sets the number of managed windows
func (m *Metrics) SetWindowsActive(count int) {
	if m == nil {
		return
	}
	m.WindowsActive.Set(float64(count))

	m.mu.Lock()
	m.snapshot.ActiveWindows = int64(count)
	m.mu.Unlock()
}

// ScriptLoaded records a page script run by the loader
func (m *Metrics) ScriptLoaded(source, status string) {
	if m == nil {
		return
	}
	m.ScriptsLoaded.WithLabelValues(source, status).Inc()
}

// Snapshot returns the current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
