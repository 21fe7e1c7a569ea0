package pipeline

import (
	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// MissingStrategy selects how missing values are filled during feature
// engineering.
type MissingStrategy string

const (
	// MissingMean fills numeric gaps with the column mean
	MissingMean MissingStrategy = "mean"
	// MissingMedian fills numeric gaps with the column median
	MissingMedian MissingStrategy = "median"
	// MissingMode fills gaps with the most frequent value
	MissingMode MissingStrategy = "mode"
	// MissingDrop drops rows containing missing values
	MissingDrop MissingStrategy = "drop"
)

// Valid reports whether the strategy is one of the supported values.
func (s MissingStrategy) Valid() bool {
	switch s {
	case MissingMean, MissingMedian, MissingMode, MissingDrop:
		return true
	}
	return false
}

// EncodingMethod selects how categorical columns become numeric.
type EncodingMethod string

const (
	// EncodingOneHot expands each category into its own 0/1 column
	EncodingOneHot EncodingMethod = "onehot"
	// EncodingLabel maps categories to integer codes
	EncodingLabel EncodingMethod = "label"
	// EncodingTarget replaces categories with target statistics
	EncodingTarget EncodingMethod = "target"
)

// Valid reports whether the encoding method is supported.
func (e EncodingMethod) Valid() bool {
	switch e {
	case EncodingOneHot, EncodingLabel, EncodingTarget:
		return true
	}
	return false
}

// PreprocessConfig holds the scaling switches for the preprocess stage.
// Both default to off; turning either on moves the stage to configured.
type PreprocessConfig struct {
	Standardization bool `json:"standardization"`
	Normalization   bool `json:"normalization"`
}

// Configured reports whether any preprocessing option is active.
func (c PreprocessConfig) Configured() bool {
	return c.Standardization || c.Normalization
}

// FeatureConfig holds the feature engineering switches. FeatureTypes names
// the engineered-feature families to derive when CreateFeatures is on; it is
// builder-local state and never part of the training request.
type FeatureConfig struct {
	HandleMissing    bool            `json:"handle_missing"`
	MissingStrategy  MissingStrategy `json:"missing_strategy"`
	EncodeCategories bool            `json:"encode_categories"`
	EncodingMethod   EncodingMethod  `json:"encoding_method"`
	CreateFeatures   bool            `json:"create_features"`
	FeatureTypes     []string        `json:"feature_types,omitempty"`
}

// Configured reports whether any feature engineering option is active.
func (c FeatureConfig) Configured() bool {
	return c.HandleMissing || c.EncodeCategories || c.CreateFeatures
}

// Validate checks the enum fields and the feature type set. Strategy and
// method must always hold a known value so a later toggle of the boolean
// cannot expose a bad one.
func (c FeatureConfig) Validate() error {
	if !c.MissingStrategy.Valid() {
		return errors.NewValidation("missing_strategy",
			"must be one of mean, median, mode, drop; got %q", c.MissingStrategy)
	}
	if !c.EncodingMethod.Valid() {
		return errors.NewValidation("encoding_method",
			"must be one of onehot, label, target; got %q", c.EncodingMethod)
	}
	seen := make(map[string]struct{}, len(c.FeatureTypes))
	for _, ft := range c.FeatureTypes {
		if ft == "" {
			return errors.NewValidation("feature_types", "entries must not be empty")
		}
		if _, dup := seen[ft]; dup {
			return errors.NewValidation("feature_types", "duplicate entry %q", ft)
		}
		seen[ft] = struct{}{}
	}
	return nil
}

// clone returns a deep copy so callers can never mutate the stored set.
func (c FeatureConfig) clone() FeatureConfig {
	out := c
	if c.FeatureTypes != nil {
		out.FeatureTypes = append([]string(nil), c.FeatureTypes...)
	}
	return out
}

// SplitTrainMin, SplitTrainMax and SplitStep bound the train percentage.
const (
	SplitTrainMin = 50
	SplitTrainMax = 90
	SplitStep     = 5
)

// SplitConfig holds the train/test split. Only the train percentage is
// stored; the test percentage is always derived so the two can never drift
// out of sum.
type SplitConfig struct {
	TrainPercent int `json:"train_percent"`
}

// TestPercent derives the held-out share.
func (c SplitConfig) TestPercent() int {
	return 100 - c.TrainPercent
}

// Validate checks the train percentage bounds and step.
func (c SplitConfig) Validate() error {
	if c.TrainPercent < SplitTrainMin || c.TrainPercent > SplitTrainMax {
		return errors.NewValidation("train_percent",
			"must be between %d and %d, got %d", SplitTrainMin, SplitTrainMax, c.TrainPercent)
	}
	if c.TrainPercent%SplitStep != 0 {
		return errors.NewValidation("train_percent",
			"must be a multiple of %d, got %d", SplitStep, c.TrainPercent)
	}
	return nil
}

// CrossValidationFoldsMin and CrossValidationFoldsMax bound the fold count.
const (
	CrossValidationFoldsMin = 2
	CrossValidationFoldsMax = 10
)

// CrossValidationConfig holds optional k-fold evaluation settings.
type CrossValidationConfig struct {
	Enabled    bool `json:"enabled"`
	Folds      int  `json:"folds"`
	Stratified bool `json:"stratified"`
	Shuffle    bool `json:"shuffle"`
}

// Validate checks the fold bounds.
func (c CrossValidationConfig) Validate() error {
	if c.Folds < CrossValidationFoldsMin || c.Folds > CrossValidationFoldsMax {
		return errors.NewValidation("folds",
			"must be between %d and %d, got %d", CrossValidationFoldsMin, CrossValidationFoldsMax, c.Folds)
	}
	return nil
}

// GridSearchConfig holds hyperparameter search state. IsSearching is
// transient UI state: it is never exported into pipeline documents.
type GridSearchConfig struct {
	Enabled        bool               `json:"enabled"`
	IsSearching    bool               `json:"is_searching"`
	SearchComplete bool               `json:"search_complete"`
	BestParams     map[string]float64 `json:"best_params,omitempty"`
	BestScore      float64            `json:"best_score"`
}

// ModelConfig aggregates the model stage configuration. Type empty means
// no model has been chosen yet.
type ModelConfig struct {
	Type            ModelType             `json:"type"`
	Hyperparameters Hyperparameters       `json:"hyperparameters"`
	CrossValidation CrossValidationConfig `json:"cross_validation"`
	GridSearch      GridSearchConfig      `json:"grid_search"`
}

// Selected reports whether a model type has been chosen.
func (c ModelConfig) Selected() bool {
	return c.Type != ""
}

// clone returns a deep copy so callers can never mutate stored maps.
func (c ModelConfig) clone() ModelConfig {
	out := c
	out.Hyperparameters = c.Hyperparameters.clone()
	if c.GridSearch.BestParams != nil {
		out.GridSearch.BestParams = make(map[string]float64, len(c.GridSearch.BestParams))
		for k, v := range c.GridSearch.BestParams {
			out.GridSearch.BestParams[k] = v
		}
	}
	return out
}

// DefaultPreprocessConfig returns the preprocess stage defaults.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{}
}

// DefaultFeatureConfig returns the feature stage defaults.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		MissingStrategy: MissingMean,
		EncodingMethod:  EncodingOneHot,
	}
}

// DefaultSplitConfig returns the split stage defaults (70/30).
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TrainPercent: 70}
}

// DefaultModelConfig returns the model stage defaults: no model chosen,
// cross-validation off with a valid fold count.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		CrossValidation: CrossValidationConfig{Folds: 5},
	}
}
