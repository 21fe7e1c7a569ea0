package metric

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.Core())
}

func TestRegistry_RegisterCounter(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("explain", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "counter should be registered in the Prometheus registry")
}

func TestRegistry_RegisterGaugeAndHistogram(t *testing.T) {
	registry := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})
	require.NoError(t, registry.RegisterGauge("service", "test_gauge", gauge))
	gauge.Set(42.0)

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})
	require.NoError(t, registry.RegisterHistogram("service", "test_histogram", histogram))
	histogram.Observe(1.5)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := make(map[string]bool)
	for _, mf := range metricFamilies {
		found[mf.GetName()] = true
	}
	assert.True(t, found["test_gauge"])
	assert.True(t, found["test_histogram"])
}

func TestRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})
	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	err := registry.RegisterCounter("service1", "duplicate_counter", counter1)
	require.NoError(t, err)

	// same component.name key is tracked by the registry itself
	err = registry.RegisterCounter("service1", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// different key, same collector name is a prometheus-level conflict
	err = registry.RegisterCounter("service2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})
	require.NoError(t, registry.RegisterCounter("service", "unregister_counter", counter))

	assert.True(t, registry.Unregister("service", "unregister_counter"))
	assert.False(t, registry.Unregister("service", "unregister_counter"),
		"second unregister finds nothing")

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		assert.NotEqual(t, "unregister_counter", mf.GetName())
	}
}

func TestRegistry_ThreadSafety(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})
			assert.NoError(t, registry.RegisterCounter("concurrent",
				fmt.Sprintf("concurrent_counter_%d", id), counter))
		}(i)
	}

	wg.Wait()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counterCount := 0
	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "concurrent_counter_") {
			counterCount++
		}
	}
	assert.Equal(t, numGoroutines, counterCount)
}

func TestRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewRegistry()
	core := registry.Core()

	// vector metrics only appear in Gather() once a label set has a value
	core.RecordHTTPRequest("POST", "/api/v1/train", "200", 120*time.Millisecond)
	core.RecordTrainingRun("succeeded")
	core.RecordTrainingDuration(3 * time.Second)
	core.SetTrainingInFlight(false)
	core.RecordBackendRequest("train", "ok", 2*time.Second)
	core.SetStagesPlaced(4)
	core.RecordConfigUpdate("model")
	core.RecordDocumentOp("export", "ok")
	core.RecordExplanation("fallback")
	core.SetEventClients(1)
	core.RecordError("Orchestrator", "transient")
	core.RecordHealthStatus("ml_backend", 2)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	expected := []string{
		"neuroblock_http_requests_total",
		"neuroblock_http_request_duration_seconds",
		"neuroblock_training_runs_total",
		"neuroblock_training_run_duration_seconds",
		"neuroblock_training_in_flight",
		"neuroblock_backend_requests_total",
		"neuroblock_backend_request_duration_seconds",
		"neuroblock_canvas_stages_placed",
		"neuroblock_pipeline_config_updates_total",
		"neuroblock_document_operations_total",
		"neuroblock_explain_served_total",
		"neuroblock_events_clients_connected",
		"neuroblock_errors_total",
		"neuroblock_health_status",
	}

	found := make(map[string]bool)
	for _, mf := range metricFamilies {
		found[mf.GetName()] = true
	}
	for _, name := range expected {
		assert.True(t, found[name], "core metric %s should be initialized", name)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// all recorders must tolerate a nil receiver
	m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
	m.RecordTrainingRun("failed")
	m.RecordTrainingDuration(time.Second)
	m.SetTrainingInFlight(true)
	m.RecordBackendRequest("health", "error", time.Millisecond)
	m.SetStagesPlaced(0)
	m.RecordConfigUpdate("split")
	m.RecordDocumentOp("import", "rejected")
	m.RecordExplanation("cache")
	m.SetEventClients(0)
	m.RecordError("Client", "invalid")
	m.RecordHealthStatus("ml_backend", 0)

	var r *Registry
	assert.Nil(t, r.Core(), "nil registry yields nil metrics")
}

func TestRegistry_Handler(t *testing.T) {
	registry := NewRegistry()
	registry.Core().RecordTrainingRun("succeeded")

	srv := httptest.NewServer(registry.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, 200, resp.StatusCode)
}
