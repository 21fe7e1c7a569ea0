package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric exported by the builder.
const namespace = "neuroblock"

// Metrics contains the builder's core instrumentation: HTTP traffic,
// training runs, ML backend calls, document operations, and explanation
// serving. All recorder methods are nil-safe so components can run with
// metrics disabled.
type Metrics struct {
	// HTTP surface
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Training runs
	TrainingRuns        *prometheus.CounterVec
	TrainingRunDuration prometheus.Histogram
	TrainingInFlight    prometheus.Gauge

	// Calls to the external ML backend
	BackendRequests        *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec

	// Pipeline state
	StagesPlaced  prometheus.Gauge
	ConfigUpdates *prometheus.CounterVec

	// Document store
	DocumentOps *prometheus.CounterVec

	// Explanations
	Explanations *prometheus.CounterVec

	// Event stream
	EventClients prometheus.Gauge

	// Cross-cutting
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec
}

// NewMetrics creates the core metric set. Collectors are not registered
// here; Registry owns registration.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		TrainingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "runs_total",
				Help:      "Training runs by outcome (succeeded, failed, rejected)",
			},
			[]string{"outcome"},
		),

		TrainingRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "run_duration_seconds",
				Help:      "Wall time of dispatched training runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),

		TrainingInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "in_flight",
				Help:      "Whether a training run is currently dispatched (0 or 1)",
			},
		),

		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Requests to the ML backend by operation and status",
			},
			[]string{"operation", "status"},
		),

		BackendRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "ML backend request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		StagesPlaced: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "canvas",
				Name:      "stages_placed",
				Help:      "Number of stages currently on the canvas",
			},
		),

		ConfigUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "config_updates_total",
				Help:      "Accepted configuration updates by stage",
			},
			[]string{"stage"},
		),

		DocumentOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "document",
				Name:      "operations_total",
				Help:      "Document operations (export, import, save, load, delete) by status",
			},
			[]string{"operation", "status"},
		),

		Explanations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "explain",
				Name:      "served_total",
				Help:      "Explanations served by source (model, cache, fallback)",
			},
			[]string{"source"},
		),

		EventClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "clients_connected",
				Help:      "Connected event stream clients",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Errors by component and class",
			},
			[]string{"component", "class"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Component health (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"component"},
		),
	}
}

// collectors returns every core collector for bulk registration.
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.TrainingRuns,
		m.TrainingRunDuration,
		m.TrainingInFlight,
		m.BackendRequests,
		m.BackendRequestDuration,
		m.StagesPlaced,
		m.ConfigUpdates,
		m.DocumentOps,
		m.Explanations,
		m.EventClients,
		m.ErrorsTotal,
		m.HealthCheckStatus,
	}
}

// RecordHTTPRequest counts one served request and its duration.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordTrainingRun counts a finished or rejected run.
func (m *Metrics) RecordTrainingRun(outcome string) {
	if m == nil {
		return
	}
	m.TrainingRuns.WithLabelValues(outcome).Inc()
}

// RecordTrainingDuration records the wall time of a dispatched run.
func (m *Metrics) RecordTrainingDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.TrainingRunDuration.Observe(duration.Seconds())
}

// SetTrainingInFlight flags whether a run is currently dispatched.
func (m *Metrics) SetTrainingInFlight(inFlight bool) {
	if m == nil {
		return
	}
	v := 0.0
	if inFlight {
		v = 1.0
	}
	m.TrainingInFlight.Set(v)
}

// RecordBackendRequest counts one ML backend call.
func (m *Metrics) RecordBackendRequest(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(operation, status).Inc()
	m.BackendRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetStagesPlaced tracks the canvas population.
func (m *Metrics) SetStagesPlaced(count int) {
	if m == nil {
		return
	}
	m.StagesPlaced.Set(float64(count))
}

// RecordConfigUpdate counts an accepted config mutation for a stage.
func (m *Metrics) RecordConfigUpdate(stage string) {
	if m == nil {
		return
	}
	m.ConfigUpdates.WithLabelValues(stage).Inc()
}

// RecordDocumentOp counts a document operation.
func (m *Metrics) RecordDocumentOp(operation, status string) {
	if m == nil {
		return
	}
	m.DocumentOps.WithLabelValues(operation, status).Inc()
}

// RecordExplanation counts a served explanation by source.
func (m *Metrics) RecordExplanation(source string) {
	if m == nil {
		return
	}
	m.Explanations.WithLabelValues(source).Inc()
}

// SetEventClients tracks connected websocket clients.
func (m *Metrics) SetEventClients(count int) {
	if m == nil {
		return
	}
	m.EventClients.Set(float64(count))
}

// RecordError counts an error by component and class.
func (m *Metrics) RecordError(component, class string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordHealthStatus updates a component's health gauge.
func (m *Metrics) RecordHealthStatus(component string, value float64) {
	if m == nil {
		return
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(value)
}
