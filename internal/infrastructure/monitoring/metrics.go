package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Every Record/Set method is safe to
// call on a nil *Metrics so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Task scheduler metrics
	TasksActive   prometheus.Gauge
	TasksFinished *prometheus.CounterVec
	TaskDuration  prometheus.Histogram
	TaskLines     *prometheus.CounterVec

	// Guarded executor metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
	SafetyViolations  *prometheus.CounterVec

	// Terminal metrics
	TerminalsActive prometheus.Gauge
	TerminalBytes   prometheus.Counter

	// Event bus metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
	stop      chan struct{}
	stopOnce  sync.Once

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	ActiveTasks    int64   `json:"active_tasks"`
	ActiveSessions int64   `json:"active_sessions"`
	AvgLatencyMS   float64 `json:"avg_latency_ms"`
	UptimeSeconds  float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a collector backed by its own registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		stop:      make(chan struct{}),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shellcore_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ServiceCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_service_calls_total",
				Help: "Total number of service tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shellcore_service_duration_seconds",
				Help:    "Service tool call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 30, 300},
			},
			[]string{"service", "tool"},
		),

		TasksActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "shellcore_tasks_active",
				Help: "Number of tasks currently holding an execution slot",
			},
		),
		TasksFinished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_tasks_finished_total",
				Help: "Total number of task runs by final status",
			},
			[]string{"status"},
		),
		TaskDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shellcore_task_duration_seconds",
				Help:    "Task run wall time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		TaskLines: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_task_output_lines_total",
				Help: "Total number of task output lines captured",
			},
			[]string{"stream"},
		),

		Executions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_guarded_executions_total",
				Help: "Total number of guarded command executions by outcome",
			},
			[]string{"outcome"},
		),
		ExecutionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shellcore_guarded_execution_duration_seconds",
				Help:    "Guarded command wall time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
			},
		),
		SafetyViolations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_safety_violations_total",
				Help: "Total number of commands rejected by policy",
			},
			[]string{"reason"},
		),

		TerminalsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "shellcore_terminal_sessions_active",
				Help: "Number of open PTY sessions",
			},
		),
		TerminalBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "shellcore_terminal_output_bytes_total",
				Help: "Total bytes read from PTY sessions",
			},
		),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_events_published_total",
				Help: "Total number of events published",
			},
			[]string{"kind"},
		),
		EventsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_events_dropped_total",
				Help: "Total number of events dropped for slow subscribers",
			},
			[]string{"kind"},
		),

		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "shellcore_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellcore_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "shellcore_uptime_seconds",
				Help: "Uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Close stops the uptime updater
func (m *Metrics) Close() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// GetSnapshot returns the current JSON-friendly values
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
