// Package session ties the builder together: one pipeline, one canvas,
// one training lifecycle, one revision stream.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mohammedsanin/NeuroBlock/canvas"
	"github.com/Mohammedsanin/NeuroBlock/document"
	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/explain"
	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/stage"
	"github.com/Mohammedsanin/NeuroBlock/status"
	"github.com/Mohammedsanin/NeuroBlock/suggest"
	"github.com/Mohammedsanin/NeuroBlock/training"
)

// Backend is everything the session needs from the ML service: the
// orchestrator's health/train pair plus dataset upload and prediction.
// *mlsvc.Client implements it.
type Backend interface {
	training.Backend
	UploadDataset(ctx context.Context, fileName string, file io.Reader) (*pipeline.DatasetHandle, error)
	Predict(ctx context.Context, sessionID string, rows []map[string]any) ([]float64, error)
}

// Explainer produces plain-language stage explanations. *explain.Service
// implements it.
type Explainer interface {
	Explain(ctx context.Context, kind stage.Kind, info *explain.DatasetContext) explain.Explanation
}

// Session is the single pipeline under construction: the stage catalog,
// the canvas, every stage config, the training lifecycle, and the saved
// pipeline library, behind one coherent API. The HTTP facade calls only
// this type.
//
// Graph mutations are serialized by one mutex. Long-running calls
// (upload, train, predict, explain) run outside it so a slow backend
// never freezes the canvas. Every successful mutation bumps the session
// revision and pokes subscribers, who then pull fresh projections.
type Session struct {
	registry  *stage.Registry
	store     *pipeline.Store
	layout    *canvas.Layout
	orch      *training.Orchestrator
	backend   Backend
	explainer Explainer
	docs      *document.Store
	logger    *slog.Logger
	metrics   *metric.Metrics

	mu       sync.Mutex
	revision atomic.Uint64

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches session metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithExplainer replaces the default static explainer.
func WithExplainer(e Explainer) Option {
	return func(s *Session) {
		if e != nil {
			s.explainer = e
		}
	}
}

// WithDocumentStore attaches the saved-pipeline library. Without it the
// save/load/list/delete operations report a configuration error.
func WithDocumentStore(docs *document.Store) Option {
	return func(s *Session) {
		s.docs = docs
	}
}

// New creates a session with an empty canvas, default configs, and the
// built-in stage catalog.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		registry:  stage.DefaultRegistry(),
		backend:   backend,
		explainer: explain.NewStatic(),
		logger:    slog.Default(),
		subs:      make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = pipeline.NewStore(pipeline.WithLogger(s.logger))
	s.layout = canvas.NewLayout()
	s.orch = training.NewOrchestrator(s.store, backend,
		training.WithLogger(s.logger), training.WithMetrics(s.metrics))
	return s
}

// Catalog returns the stage descriptors in canonical pipeline order.
func (s *Session) Catalog() []stage.Descriptor {
	return s.registry.List()
}

// Stages returns the placed stages in placement order.
func (s *Session) Stages() []canvas.PlacedStage {
	return s.layout.Placed()
}

// Snapshot returns a consistent copy of every stage config.
func (s *Session) Snapshot() pipeline.Snapshot {
	return s.store.Snapshot()
}

// PlaceStage adds a stage to the canvas, returning the snapped position.
// The kind must exist in the catalog and not already be placed.
func (s *Session) PlaceStage(kind stage.Kind, pos canvas.Position) (canvas.Position, error) {
	if _, err := s.registry.Get(kind); err != nil {
		return canvas.Position{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapped, err := s.layout.Place(kind, pos)
	if err != nil {
		return canvas.Position{}, err
	}
	s.metrics.SetStagesPlaced(s.layout.Count())
	s.bump("stage placed", "kind", kind, "x", snapped.X, "y", snapped.Y)
	return snapped, nil
}

// MoveStage repositions a placed stage, returning the snapped position.
func (s *Session) MoveStage(kind stage.Kind, pos canvas.Position) (canvas.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapped, err := s.layout.Move(kind, pos)
	if err != nil {
		return canvas.Position{}, err
	}
	s.bump("stage moved", "kind", kind, "x", snapped.X, "y", snapped.Y)
	return snapped, nil
}

// RemoveStage takes a stage off the canvas. Its configuration is kept, so
// placing the same kind again restores the previous settings.
func (s *Session) RemoveStage(kind stage.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.layout.Remove(kind); err != nil {
		return err
	}
	s.metrics.SetStagesPlaced(s.layout.Count())
	s.bump("stage removed", "kind", kind)
	return nil
}

// AutoArrange moves every placed stage to its canonical two-row slot and
// returns the resulting layout.
func (s *Session) AutoArrange() []canvas.PlacedStage {
	s.mu.Lock()
	defer s.mu.Unlock()

	placed := s.layout.AutoArrange()
	s.bump("canvas arranged", "stages", len(placed))
	return placed
}

// SetPreprocess merges a partial preprocess update.
func (s *Session) SetPreprocess(patch pipeline.PreprocessPatch) (pipeline.PreprocessConfig, error) {
	cfg, err := s.store.SetPreprocess(patch)
	if err != nil {
		return cfg, err
	}
	s.configUpdated(stage.KindPreprocess)
	return cfg, nil
}

// SetFeature merges a partial feature engineering update.
func (s *Session) SetFeature(patch pipeline.FeaturePatch) (pipeline.FeatureConfig, error) {
	cfg, err := s.store.SetFeature(patch)
	if err != nil {
		return cfg, err
	}
	s.configUpdated(stage.KindFeature)
	return cfg, nil
}

// SetSplit merges a partial split update.
func (s *Session) SetSplit(patch pipeline.SplitPatch) (pipeline.SplitConfig, error) {
	cfg, err := s.store.SetSplit(patch)
	if err != nil {
		return cfg, err
	}
	s.configUpdated(stage.KindSplit)
	return cfg, nil
}

// SetModelType selects the learning algorithm and resets its
// hyperparameters to defaults.
func (s *Session) SetModelType(mt pipeline.ModelType) error {
	if err := s.store.SetModelType(mt); err != nil {
		return err
	}
	s.configUpdated(stage.KindModel)
	return nil
}

// SetHyperparameters merges hyperparameter updates for the selected model.
func (s *Session) SetHyperparameters(updates map[string]any) error {
	if err := s.store.SetHyperparameters(updates); err != nil {
		return err
	}
	s.configUpdated(stage.KindModel)
	return nil
}

// SetCrossValidation merges a partial cross-validation update.
func (s *Session) SetCrossValidation(patch pipeline.CrossValidationPatch) error {
	if err := s.store.SetCrossValidation(patch); err != nil {
		return err
	}
	s.configUpdated(stage.KindModel)
	return nil
}

// SetGridSearch merges a partial grid search update.
func (s *Session) SetGridSearch(patch pipeline.GridSearchPatch) error {
	if err := s.store.SetGridSearch(patch); err != nil {
		return err
	}
	s.configUpdated(stage.KindModel)
	return nil
}

// UploadDataset sends the file to the ML backend and, on success, swaps
// the returned dataset handle into the pipeline. Any previous feature
// selection is cleared with the old dataset.
func (s *Session) UploadDataset(ctx context.Context, fileName string, file io.Reader) (*pipeline.DatasetHandle, error) {
	handle, err := s.backend.UploadDataset(ctx, fileName, file)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetDataset(*handle); err != nil {
		return nil, err
	}
	s.bump("dataset attached", "file", handle.FileName, "rows", handle.Rows)
	return s.store.Dataset(), nil
}

// SelectFeatures records the input features and target variable for the
// uploaded dataset.
func (s *Session) SelectFeatures(features []string, target string) error {
	if err := s.store.SelectFeatures(features, target); err != nil {
		return err
	}
	s.configUpdated(stage.KindDataset)
	return nil
}

// ClearDataset detaches the dataset and its selection.
func (s *Session) ClearDataset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.ClearDataset()
	s.bump("dataset cleared")
}

// Statuses projects the current status of every stage kind.
func (s *Session) Statuses() map[stage.Kind]status.Status {
	return status.All(s.store.Snapshot(), s.hasCurrentResult())
}

// Suggestions proposes up to two stages to add next.
func (s *Session) Suggestions() []suggest.Suggestion {
	return suggest.For(s.layout.PlacedKinds())
}

// CanTrain reports whether the pipeline meets all training requirements.
func (s *Session) CanTrain() bool {
	return s.orch.CanTrain()
}

// Train runs one training pass. Readiness, health probing, single-flight
// and result bookkeeping all live in the orchestrator; the session only
// announces the new result to subscribers.
func (s *Session) Train(ctx context.Context) (*training.Result, error) {
	result, err := s.orch.Train(ctx)
	if err != nil {
		return nil, err
	}
	s.bump("training finished", "accuracy", result.TestMetrics.Accuracy)
	return result, nil
}

// LastResult returns the most recent training result and whether it still
// matches the current configuration. Editing any stage after training
// leaves the result readable but stale.
func (s *Session) LastResult() (*training.Result, bool) {
	return s.orch.Result(), s.orch.ResultCurrent()
}

// Predict scores rows with the trained model.
func (s *Session) Predict(ctx context.Context, rows []map[string]any) ([]float64, error) {
	if len(rows) == 0 {
		return nil, errors.NewValidation("data", "no rows to predict")
	}

	handle := s.store.Dataset()
	if handle == nil || s.orch.Result() == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: train a model first", errors.ErrNoResult),
			"Session", "Predict", "result check")
	}
	return s.backend.Predict(ctx, handle.SessionID, rows)
}

// Explain returns a plain-language explanation of a stage. When the
// caller passes no dataset context, the uploaded dataset's summary is
// used so explanations can reference the user's own columns.
func (s *Session) Explain(ctx context.Context, kind stage.Kind, info *explain.DatasetContext) explain.Explanation {
	if info == nil {
		info = datasetContext(s.store.DatasetSummary())
	}
	return s.explainer.Explain(ctx, kind, info)
}

// Export serializes the current pipeline to portable JSON.
func (s *Session) Export(name string) ([]byte, error) {
	s.mu.Lock()
	doc := document.Export(name, s.layout.Placed(), s.store.Snapshot(), time.Now())
	s.mu.Unlock()

	data, err := doc.Marshal()
	if err != nil {
		s.metrics.RecordDocumentOp("export", "error")
		return nil, err
	}
	s.metrics.RecordDocumentOp("export", "ok")
	s.logger.Info("pipeline exported", "name", doc.Name, "stages", len(doc.Stages))
	return data, nil
}

// Import replaces the whole pipeline with a parsed document. Validation
// happens before any state is touched: a rejected document leaves the
// canvas, the configs, and the last result exactly as they were.
func (s *Session) Import(raw []byte) error {
	doc, err := document.Parse(raw)
	if err != nil {
		s.metrics.RecordDocumentOp("import", "rejected")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := document.Apply(doc, s.layout, s.store); err != nil {
		s.metrics.RecordDocumentOp("import", "rejected")
		return err
	}
	s.orch.Reset()
	s.metrics.SetStagesPlaced(s.layout.Count())
	s.metrics.RecordDocumentOp("import", "ok")
	s.bump("pipeline imported", "name", doc.Name, "stages", len(doc.Stages))
	return nil
}

// SavePipeline stores the current pipeline in the library.
func (s *Session) SavePipeline(name string) (document.Entry, error) {
	if err := s.requireDocs("SavePipeline"); err != nil {
		return document.Entry{}, err
	}

	s.mu.Lock()
	doc := document.Export(name, s.layout.Placed(), s.store.Snapshot(), time.Now())
	s.mu.Unlock()

	return s.docs.Save(doc)
}

// LoadPipeline replaces the current pipeline with a saved one. Semantics
// match Import: all-or-nothing, last result cleared on success.
func (s *Session) LoadPipeline(id string) error {
	if err := s.requireDocs("LoadPipeline"); err != nil {
		return err
	}

	doc, err := s.docs.Load(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := document.Apply(doc, s.layout, s.store); err != nil {
		return err
	}
	s.orch.Reset()
	s.metrics.SetStagesPlaced(s.layout.Count())
	s.bump("pipeline loaded", "id", id, "name", doc.Name)
	return nil
}

// GetPipeline reads a saved pipeline without applying it.
func (s *Session) GetPipeline(id string) (*document.Document, error) {
	if err := s.requireDocs("GetPipeline"); err != nil {
		return nil, err
	}
	return s.docs.Load(id)
}

// ListPipelines lists the saved pipeline library, newest first.
func (s *Session) ListPipelines() ([]document.Entry, error) {
	if err := s.requireDocs("ListPipelines"); err != nil {
		return nil, err
	}
	return s.docs.List()
}

// DeletePipeline removes a saved pipeline from the library.
func (s *Session) DeletePipeline(id string) error {
	if err := s.requireDocs("DeletePipeline"); err != nil {
		return err
	}
	return s.docs.Delete(id)
}

// Reset wipes the canvas, restores every config default, and drops the
// last training result.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layout.Clear()
	s.store.Reset()
	s.orch.Reset()
	s.metrics.SetStagesPlaced(0)
	s.bump("session reset")
}

// Revision returns the session revision, bumped on every successful
// mutation.
func (s *Session) Revision() uint64 {
	return s.revision.Load()
}

// Subscribe registers for change notifications. The channel has a buffer
// of one and notifications coalesce: a slow consumer sees at least one
// tick after any burst of changes, never a backlog.
func (s *Session) Subscribe() (int, <-chan struct{}) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// configUpdated records a config mutation and announces it.
func (s *Session) configUpdated(kind stage.Kind) {
	s.metrics.RecordConfigUpdate(kind.String())
	s.bump("config updated", "kind", kind)
}

// bump advances the revision and pokes every subscriber without blocking.
func (s *Session) bump(msg string, args ...any) {
	rev := s.revision.Add(1)
	s.logger.Debug(msg, append(args, "revision", rev)...)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Session) hasCurrentResult() bool {
	return s.orch.Result() != nil && s.orch.ResultCurrent()
}

func (s *Session) requireDocs(method string) error {
	if s.docs == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no pipeline library directory configured", errors.ErrMissingConfig),
			"Session", method, "library check")
	}
	return nil
}

// datasetContext converts a dataset summary into the explainer's shape.
func datasetContext(sum *pipeline.Summary) *explain.DatasetContext {
	if sum == nil {
		return nil
	}
	types := make(map[string]string, len(sum.ColumnTypes))
	for col, t := range sum.ColumnTypes {
		types[col] = string(t)
	}
	return &explain.DatasetContext{
		FileName:    sum.FileName,
		Rows:        sum.Rows,
		Columns:     append([]string(nil), sum.Columns...),
		ColumnTypes: types,
	}
}
