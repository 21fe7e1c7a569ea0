// Package health provides health monitoring for the pipeline builder's
// dependencies with thread-safe status tracking and aggregation.
//
// The builder has two external dependencies worth watching: the ML training
// service and the pipeline library on disk. This package tracks their state
// and folds it into the single aggregate that /healthz reports.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: dependency reachable and operating normally
//   - Degraded: dependency operating with reduced functionality
//   - Unhealthy: dependency not functioning; training must not be dispatched
//
// The three-state model matters operationally: a degraded backend still
// serves the canvas and configuration endpoints, while an unhealthy backend
// turns /healthz into a 503 so the deployment's readiness gate holds traffic.
//
// # Pushed and Pulled Statuses
//
// Statuses arrive two ways. Components that learn about failures in the
// course of normal work push them:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateUnhealthy("ml-backend", "training request timed out")
//
// Dependencies that must be probed register a check, and the monitor pulls
// on an interval:
//
//	monitor.RegisterCheck("ml-backend", func(ctx context.Context) health.Status {
//	    return health.FromError("ml-backend", backend.Health(ctx))
//	})
//	go monitor.Watch(ctx, "neuroblock", 15*time.Second)
//
// # Aggregation
//
// AggregateHealth folds every tracked status into one:
//
//	overall := monitor.AggregateHealth("neuroblock")
//	if overall.IsUnhealthy() {
//	    // /healthz answers 503
//	}
//
// Aggregation uses hierarchical rules:
//   - Any unhealthy component → system unhealthy
//   - Any degraded component (with no unhealthy) → system degraded
//   - All healthy → system healthy
//
// # Message Sanitization
//
// FromError sanitizes probe errors before they become status messages, since
// /healthz is reachable without authentication. URLs, file paths, IPs, ports,
// and credential-shaped fragments are replaced with placeholders.
package health
