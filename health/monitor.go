package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Mohammedsanin/NeuroBlock/metric"
)

// Check probes one dependency and reports its current state. Implementations
// must honor ctx and return promptly once it is canceled.
type Check func(ctx context.Context) Status

// Monitor tracks health of the builder's dependencies in a thread-safe
// manner. Statuses arrive two ways: pushed via Update, or pulled by probes
// registered with RegisterCheck and driven by RunChecks or Watch.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checks   map[string]Check

	logger  *slog.Logger
	metrics *metric.Metrics
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithLogger sets the logger used for probe outcomes.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics publishes each status transition as a health gauge sample.
func WithMetrics(metrics *metric.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = metrics }
}

// NewMonitor creates a new health monitor
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		statuses: make(map[string]Status),
		checks:   make(map[string]Check),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update updates the health status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()

	// Ensure the status has the correct component name and timestamp
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.statuses[name] = status
	m.mu.Unlock()

	m.metrics.RecordHealthStatus(name, status.Value())
	if !status.IsHealthy() {
		m.logger.Warn("component health changed",
			"component", name,
			"status", status.Status,
			"message", status.Message)
	}
}

// UpdateHealthy is a convenience method to update a component as healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy is a convenience method to update a component as unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded is a convenience method to update a component as degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// RegisterCheck adds a probe that RunChecks and Watch will invoke. The probe
// result replaces any previous status for name.
func (m *Monitor) RegisterCheck(name string, check Check) {
	if check == nil {
		return
	}
	m.mu.Lock()
	m.checks[name] = check
	m.mu.Unlock()
}

// RunChecks invokes every registered probe once, records the results, and
// returns the aggregate for systemName. Probes run sequentially in name
// order so the aggregate is stable for a given set of outcomes.
func (m *Monitor) RunChecks(ctx context.Context, systemName string) Status {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		m.mu.RLock()
		check := m.checks[name]
		m.mu.RUnlock()
		if check == nil {
			continue
		}
		m.Update(name, check(ctx))
	}

	return m.AggregateHealth(systemName)
}

// Watch drives the registered probes on a fixed interval until ctx is
// canceled. The first round runs immediately so /healthz has data before the
// first tick.
func (m *Monitor) Watch(ctx context.Context, systemName string, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	m.RunChecks(ctx, systemName)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunChecks(ctx, systemName)
		}
	}
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	return status, exists
}

// GetAll returns a copy of all current health statuses
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		result[name] = status
	}
	return result
}

// Remove removes a component from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.checks, name)
}

// AggregateHealth returns an aggregated health status for the entire system.
// Sub-statuses are ordered by component name so the JSON shape is stable.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	m.mu.RUnlock()

	sort.Slice(subStatuses, func(i, j int) bool {
		return subStatuses[i].Component < subStatuses[j].Component
	})

	return Aggregate(systemName, subStatuses)
}

// Count returns the number of components being monitored
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.statuses)
}

// Clear removes all components from monitoring
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses = make(map[string]Status)
	m.checks = make(map[string]Check)
}
