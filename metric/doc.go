// Package metric provides Prometheus-based instrumentation for the
// NeuroBlock builder.
//
// The package offers a centralized registry managing both the builder's
// core metrics (HTTP traffic, training runs, ML backend calls, document
// operations, explanation serving) and extension metrics registered at
// runtime. The registry exposes a Prometheus scrape handler that the
// service mounts on its main mux.
//
// # Basic Usage
//
// Setting up metrics and mounting the scrape endpoint:
//
//	registry := metric.NewRegistry()
//	mux.Handle("GET /metrics", registry.Handler())
//
//	// record through the core metrics
//	core := registry.Core()
//	core.RecordTrainingRun("succeeded")
//	core.RecordBackendRequest("train", "ok", elapsed)
//
// Components accept *metric.Metrics and tolerate nil: every recorder is a
// no-op on a nil receiver, so tests and metric-less deployments need no
// stub wiring.
//
// # Core Metrics
//
// All metrics live under the neuroblock namespace:
//
//   - neuroblock_http_requests_total / request_duration_seconds
//   - neuroblock_training_runs_total (by outcome), run_duration_seconds, in_flight
//   - neuroblock_backend_requests_total / request_duration_seconds (by operation)
//   - neuroblock_canvas_stages_placed
//   - neuroblock_pipeline_config_updates_total (by stage)
//   - neuroblock_document_operations_total (by operation and status)
//   - neuroblock_explain_served_total (by source)
//   - neuroblock_events_clients_connected
//   - neuroblock_errors_total (by component and class)
//   - neuroblock_health_status (by component)
//
// # Extension Metrics
//
// Components with bespoke needs register their own collectors:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{...})
//	if err := registry.RegisterCounter("explain", "cache_hits", counter); err != nil {
//	    // duplicate registration is rejected, not silently merged
//	}
//
// Go runtime and process collectors are registered automatically.
package metric
