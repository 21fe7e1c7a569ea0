package training

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
)

// RunState tracks where a training run is in its lifecycle.
type RunState string

const (
	// StateIdle means no run has started since creation or reset
	StateIdle RunState = "idle"
	// StateValidating means readiness checks are underway
	StateValidating RunState = "validating"
	// StateHealthChecking means the service probe is in flight
	StateHealthChecking RunState = "health_checking"
	// StateDispatched means the training request has been sent
	StateDispatched RunState = "dispatched"
	// StateSucceeded means the last run produced a result
	StateSucceeded RunState = "succeeded"
	// StateFailed means the last run ended in an error
	StateFailed RunState = "failed"
)

// CanTrain reports whether a snapshot satisfies the training gate: an
// uploaded dataset, at least one input feature, a target variable, and a
// chosen model. Optional stages never block training.
func CanTrain(snap pipeline.Snapshot) bool {
	return len(missingRequirements(snap)) == 0
}

// missingRequirements names the unmet gate conditions, in a fixed order so
// error messages are deterministic.
func missingRequirements(snap pipeline.Snapshot) []string {
	var missing []string
	if !snap.HasDataset() {
		missing = append(missing, "upload a dataset")
	}
	if snap.Dataset == nil || len(snap.Dataset.InputFeatures) == 0 {
		missing = append(missing, "select input features")
	}
	if snap.Dataset == nil || snap.Dataset.TargetVariable == "" {
		missing = append(missing, "select a target variable")
	}
	if !snap.Model.Selected() {
		missing = append(missing, "choose a model")
	}
	return missing
}

// Orchestrator drives training runs against the ML backend. At most one
// run is in flight at a time; a second Train call while one is outstanding
// is rejected, never queued.
//
// The stored result carries the pipeline revision it was trained from.
// ResultCurrent compares that against the live store, so any configuration
// change after (or during) a run marks the result stale without any
// subscription machinery.
type Orchestrator struct {
	store   *pipeline.Store
	backend Backend
	logger  *slog.Logger
	metrics *metric.Metrics

	mu        sync.Mutex
	state     RunState
	inFlight  bool
	result    *Result
	resultRev uint64
	lastErr   error
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches run instrumentation.
func WithMetrics(m *metric.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator over the given store and backend.
func NewOrchestrator(store *pipeline.Store, backend Backend, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		backend: backend,
		logger:  slog.Default(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CanTrain evaluates the training gate against the current store.
func (o *Orchestrator) CanTrain() bool {
	return CanTrain(o.store.Snapshot())
}

// Train runs the full sequence: readiness validation, service health
// probe, request assembly, and a single dispatch. It blocks until the
// service responds; callers wanting asynchrony run it in a goroutine and
// rely on the in-flight rejection for exclusivity.
func (o *Orchestrator) Train(ctx context.Context) (*Result, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	snap := o.store.Snapshot()

	if missing := missingRequirements(snap); len(missing) > 0 {
		err := errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrNotReady, strings.Join(missing, ", ")),
			"Orchestrator", "Train", "readiness check")
		o.fail(err, "rejected")
		return nil, err
	}
	if snap.Dataset.SessionID == "" {
		err := errors.WrapInvalid(
			fmt.Errorf("%w: dataset has no session", errors.ErrSessionExpired),
			"Orchestrator", "Train", "session check")
		o.fail(err, "rejected")
		return nil, err
	}

	o.setState(StateHealthChecking)
	if err := o.backend.Health(ctx); err != nil {
		wrapped := errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err),
			"Orchestrator", "Train", "service health probe")
		o.fail(wrapped, "failed")
		return nil, wrapped
	}

	req := NewRequest(snap)
	o.logger.Info("dispatching training run",
		"model_type", req.ModelType,
		"features", len(req.InputFeatures),
		"target", req.TargetVariable,
		"split_ratio", req.SplitRatio)

	o.setState(StateDispatched)
	started := time.Now()
	result, err := o.backend.Train(ctx, req)
	o.metrics.RecordTrainingDuration(time.Since(started))
	if err != nil {
		o.fail(passthrough(err), "failed")
		return nil, o.LastError()
	}

	o.succeed(result, snap.Revision)
	o.logger.Info("training run succeeded",
		"test_accuracy", result.TestMetrics.Accuracy,
		"train_samples", result.NTrainSamples,
		"test_samples", result.NTestSamples,
		"elapsed", time.Since(started))
	return result, nil
}

// passthrough keeps already-classified backend errors intact and folds
// anything else into the training-failed bucket.
func passthrough(err error) error {
	switch {
	case errors.IsSessionExpired(err),
		errors.IsUnavailable(err),
		errors.IsTrainingFailed(err):
		return err
	default:
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTrainingFailed, err),
			"Orchestrator", "Train", "training dispatch")
	}
}

// begin claims the single run slot.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inFlight {
		err := errors.WrapInvalid(
			fmt.Errorf("%w: a training run is already in flight", errors.ErrAlreadyInProgress),
			"Orchestrator", "Train", "concurrency check")
		o.metrics.RecordTrainingRun("rejected")
		return err
	}

	o.inFlight = true
	o.state = StateValidating
	o.metrics.SetTrainingInFlight(true)
	return nil
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) fail(err error, outcome string) {
	o.mu.Lock()
	o.state = StateFailed
	o.inFlight = false
	o.lastErr = err
	o.mu.Unlock()

	o.metrics.SetTrainingInFlight(false)
	o.metrics.RecordTrainingRun(outcome)
	o.metrics.RecordError("Orchestrator", errors.Classify(err).String())
	o.logger.Warn("training run failed", "error", err)
}

func (o *Orchestrator) succeed(result *Result, rev uint64) {
	o.mu.Lock()
	o.state = StateSucceeded
	o.inFlight = false
	o.result = result
	o.resultRev = rev
	o.lastErr = nil
	o.mu.Unlock()

	o.metrics.SetTrainingInFlight(false)
	o.metrics.RecordTrainingRun("succeeded")
}

// State returns the current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// InFlight reports whether a run is outstanding.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Result returns the last stored result, current or stale, or nil if no
// run has succeeded since the last reset. Callers must treat it as
// read-only.
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// ResultCurrent reports whether a stored result exists and still matches
// the pipeline configuration it was trained from. Any store mutation since
// the run's snapshot makes it stale.
func (o *Orchestrator) ResultCurrent() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result != nil && o.resultRev == o.store.Revision()
}

// LastError returns the error that ended the most recent run, nil after a
// success.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Reset discards the stored result and error and returns to idle. An
// in-flight run is not interrupted; its outcome lands normally and is
// immediately stale if the pipeline changed underneath it.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.inFlight {
		o.state = StateIdle
	}
	o.result = nil
	o.resultRev = 0
	o.lastErr = nil
}
