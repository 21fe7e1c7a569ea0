package pipeline

import (
	"log/slog"
	"sync"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// Store holds the typed configuration for every stage plus the dataset
// handle. All mutations follow the same discipline: merge the patch into a
// copy, validate the merged value, and only then swap it in, so a failed
// set leaves the stored config untouched.
//
// Revision is a monotonic counter bumped on every successful mutation. It
// is the invalidation signal: status and suggestion projections are pure
// functions of a Snapshot, so consumers that cache them compare revisions
// instead of subscribing to per-field events.
type Store struct {
	mu         sync.RWMutex
	preprocess PreprocessConfig
	feature    FeatureConfig
	split      SplitConfig
	model      ModelConfig
	dataset    *DatasetHandle
	summary    *Summary
	revision   uint64
	logger     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for store mutations.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store with every stage at its defaults.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		preprocess: DefaultPreprocessConfig(),
		feature:    DefaultFeatureConfig(),
		split:      DefaultSplitConfig(),
		model:      DefaultModelConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PreprocessPatch carries a partial preprocess update; nil fields are left
// unchanged.
type PreprocessPatch struct {
	Standardization *bool `json:"standardization"`
	Normalization   *bool `json:"normalization"`
}

// FeaturePatch carries a partial feature engineering update. FeatureTypes,
// when present, replaces the stored set wholesale.
type FeaturePatch struct {
	HandleMissing    *bool            `json:"handle_missing"`
	MissingStrategy  *MissingStrategy `json:"missing_strategy"`
	EncodeCategories *bool            `json:"encode_categories"`
	EncodingMethod   *EncodingMethod  `json:"encoding_method"`
	CreateFeatures   *bool            `json:"create_features"`
	FeatureTypes     []string         `json:"feature_types"`
}

// SplitPatch carries a partial split update.
type SplitPatch struct {
	TrainPercent *int `json:"train_percent"`
}

// CrossValidationPatch carries a partial cross-validation update.
type CrossValidationPatch struct {
	Enabled    *bool `json:"enabled"`
	Folds      *int  `json:"folds"`
	Stratified *bool `json:"stratified"`
	Shuffle    *bool `json:"shuffle"`
}

// GridSearchPatch carries a partial grid search update. BestParams, when
// present, replaces the stored map wholesale.
type GridSearchPatch struct {
	Enabled        *bool              `json:"enabled"`
	IsSearching    *bool              `json:"is_searching"`
	SearchComplete *bool              `json:"search_complete"`
	BestParams     map[string]float64 `json:"best_params"`
	BestScore      *float64           `json:"best_score"`
}

// Preprocess returns the current preprocess config.
func (s *Store) Preprocess() PreprocessConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preprocess
}

// SetPreprocess merges the patch and returns the resulting config.
func (s *Store) SetPreprocess(patch PreprocessPatch) (PreprocessConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.preprocess
	if patch.Standardization != nil {
		merged.Standardization = *patch.Standardization
	}
	if patch.Normalization != nil {
		merged.Normalization = *patch.Normalization
	}

	s.preprocess = merged
	s.bump("preprocess")
	return merged, nil
}

// Feature returns the current feature engineering config.
func (s *Store) Feature() FeatureConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feature.clone()
}

// SetFeature merges the patch, validates the merged config, and returns it.
func (s *Store) SetFeature(patch FeaturePatch) (FeatureConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.feature
	if patch.HandleMissing != nil {
		merged.HandleMissing = *patch.HandleMissing
	}
	if patch.MissingStrategy != nil {
		merged.MissingStrategy = *patch.MissingStrategy
	}
	if patch.EncodeCategories != nil {
		merged.EncodeCategories = *patch.EncodeCategories
	}
	if patch.EncodingMethod != nil {
		merged.EncodingMethod = *patch.EncodingMethod
	}
	if patch.CreateFeatures != nil {
		merged.CreateFeatures = *patch.CreateFeatures
	}
	if patch.FeatureTypes != nil {
		merged.FeatureTypes = append([]string(nil), patch.FeatureTypes...)
	}

	if err := merged.Validate(); err != nil {
		return s.feature.clone(), errors.Wrap(err, "Store", "SetFeature", "validate feature config")
	}

	s.feature = merged
	s.bump("feature")
	return merged.clone(), nil
}

// Split returns the current split config.
func (s *Store) Split() SplitConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.split
}

// SetSplit merges the patch, validates it, and returns the resulting config.
func (s *Store) SetSplit(patch SplitPatch) (SplitConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.split
	if patch.TrainPercent != nil {
		merged.TrainPercent = *patch.TrainPercent
	}

	if err := merged.Validate(); err != nil {
		return s.split, errors.Wrap(err, "Store", "SetSplit", "validate split config")
	}

	s.split = merged
	s.bump("split")
	return merged, nil
}

// Model returns a deep copy of the current model config.
func (s *Store) Model() ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.clone()
}

// SetModelType selects the algorithm. Hyperparameters reset to the new
// model's defaults and any previous grid search results are dropped, since
// they were tuned for a different algorithm.
func (s *Store) SetModelType(mt ModelType) error {
	if !mt.Valid() {
		return errors.Wrap(
			errors.NewValidation("model_type", "unsupported model type %q", mt),
			"Store", "SetModelType", "validate model type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.Type == mt {
		return nil
	}

	s.model.Type = mt
	s.model.Hyperparameters = DefaultHyperparameters(mt)
	s.model.GridSearch.SearchComplete = false
	s.model.GridSearch.IsSearching = false
	s.model.GridSearch.BestParams = nil
	s.model.GridSearch.BestScore = 0
	s.bump("model")
	return nil
}

// SetHyperparameters merges the update map onto the current knobs. Every
// provided key is validated against the selected model's schema; one bad
// key rejects the whole update.
func (s *Store) SetHyperparameters(updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.model.Selected() {
		return errors.Wrap(
			errors.NewValidation("model_type", "select a model before tuning hyperparameters"),
			"Store", "SetHyperparameters", "check model selection")
	}

	merged, err := mergeHyperparameters(s.model.Type, s.model.Hyperparameters, updates)
	if err != nil {
		return errors.Wrap(err, "Store", "SetHyperparameters", "validate hyperparameters")
	}

	s.model.Hyperparameters = merged
	s.bump("model")
	return nil
}

// SetCrossValidation merges the patch and validates fold bounds.
func (s *Store) SetCrossValidation(patch CrossValidationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.model.CrossValidation
	if patch.Enabled != nil {
		merged.Enabled = *patch.Enabled
	}
	if patch.Folds != nil {
		merged.Folds = *patch.Folds
	}
	if patch.Stratified != nil {
		merged.Stratified = *patch.Stratified
	}
	if patch.Shuffle != nil {
		merged.Shuffle = *patch.Shuffle
	}

	if err := merged.Validate(); err != nil {
		return errors.Wrap(err, "Store", "SetCrossValidation", "validate cross-validation config")
	}

	s.model.CrossValidation = merged
	s.bump("model")
	return nil
}

// SetGridSearch merges the patch. No bounds apply; the transient
// IsSearching flag lives here but never reaches exported documents.
func (s *Store) SetGridSearch(patch GridSearchPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.model.GridSearch
	if patch.Enabled != nil {
		merged.Enabled = *patch.Enabled
	}
	if patch.IsSearching != nil {
		merged.IsSearching = *patch.IsSearching
	}
	if patch.SearchComplete != nil {
		merged.SearchComplete = *patch.SearchComplete
	}
	if patch.BestParams != nil {
		cp := make(map[string]float64, len(patch.BestParams))
		for k, v := range patch.BestParams {
			cp[k] = v
		}
		merged.BestParams = cp
	}
	if patch.BestScore != nil {
		merged.BestScore = *patch.BestScore
	}

	s.model.GridSearch = merged
	s.bump("model")
	return nil
}

// Dataset returns a deep copy of the current handle, or nil when no
// dataset has been uploaded.
func (s *Store) Dataset() *DatasetHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset.clone()
}

// HasDataset reports whether an uploaded dataset is attached.
func (s *Store) HasDataset() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset != nil
}

// SetDataset attaches an uploaded dataset. Any previous feature/target
// selection is cleared: it referred to the old columns.
func (s *Store) SetDataset(handle DatasetHandle) error {
	if err := handle.Validate(); err != nil {
		return errors.Wrap(err, "Store", "SetDataset", "validate dataset handle")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := handle.clone()
	cp.InputFeatures = nil
	cp.TargetVariable = ""
	s.dataset = cp
	summary := cp.Summary()
	s.summary = &summary
	s.bump("dataset")
	return nil
}

// SelectFeatures records the input feature and target selection.
func (s *Store) SelectFeatures(features []string, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset == nil {
		return errors.Wrap(
			errors.NewValidation("dataset", "upload a dataset before selecting features"),
			"Store", "SelectFeatures", "check dataset presence")
	}
	if err := s.dataset.validateSelection(features, target); err != nil {
		return errors.Wrap(err, "Store", "SelectFeatures", "validate selection")
	}

	s.dataset.InputFeatures = append([]string(nil), features...)
	s.dataset.TargetVariable = target
	s.bump("dataset")
	return nil
}

// ClearSelection drops the feature/target selection while keeping the
// uploaded dataset attached.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset == nil {
		return
	}
	if s.dataset.InputFeatures == nil && s.dataset.TargetVariable == "" {
		return
	}
	s.dataset.InputFeatures = nil
	s.dataset.TargetVariable = ""
	s.bump("dataset")
}

// ClearDataset detaches the dataset and its display summary.
func (s *Store) ClearDataset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset == nil && s.summary == nil {
		return
	}
	s.dataset = nil
	s.summary = nil
	s.bump("dataset")
}

// DatasetSummary returns the display digest. It survives imports, which
// restore a summary without a live backend session.
func (s *Store) DatasetSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary.clone()
}

// SetDatasetSummary attaches a summary-only dataset view (used by document
// import). Any live handle is dropped: the document carries no session.
func (s *Store) SetDatasetSummary(summary Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataset = nil
	cp := summary.clone()
	s.summary = cp
	s.bump("dataset")
}

// Reset returns every stage to its defaults and detaches the dataset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preprocess = DefaultPreprocessConfig()
	s.feature = DefaultFeatureConfig()
	s.split = DefaultSplitConfig()
	s.model = DefaultModelConfig()
	s.dataset = nil
	s.summary = nil
	s.bump("all")
}

// Restore swaps in a complete configuration set at once. Used by document
// import after the staging copy has fully validated; the caller guarantees
// the configs are coherent.
func (s *Store) Restore(pre PreprocessConfig, feat FeatureConfig, split SplitConfig, model ModelConfig, summary *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preprocess = pre
	s.feature = feat.clone()
	s.split = split
	s.model = model.clone()
	s.dataset = nil
	s.summary = summary.clone()
	s.bump("all")
}

// Revision returns the mutation counter.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot captures a consistent read of the whole store for the pure
// projections (status, suggestions, canTrain, request assembly). Revision
// is the store revision the snapshot was taken at.
type Snapshot struct {
	Revision   uint64
	Dataset    *DatasetHandle
	Summary    *Summary
	Preprocess PreprocessConfig
	Feature    FeatureConfig
	Split      SplitConfig
	Model      ModelConfig
}

// HasDataset reports whether a live backend session is attached.
func (snap Snapshot) HasDataset() bool {
	return snap.Dataset != nil
}

// Snapshot returns a consistent deep copy of the store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Revision:   s.revision,
		Dataset:    s.dataset.clone(),
		Summary:    s.summary.clone(),
		Preprocess: s.preprocess,
		Feature:    s.feature.clone(),
		Split:      s.split,
		Model:      s.model.clone(),
	}
}

// bump increments the revision under the write lock.
func (s *Store) bump(what string) {
	s.revision++
	s.logger.Debug("pipeline config updated", "stage", what, "revision", s.revision)
}
