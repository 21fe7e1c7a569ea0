package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// ModelType identifies the learning algorithm. Values are the exact wire
// strings the training backend expects in the "model_type" field.
type ModelType string

const (
	// ModelLogistic is logistic (or linear, for regression targets) modeling
	ModelLogistic ModelType = "logistic"
	// ModelDecisionTree is a single decision tree
	ModelDecisionTree ModelType = "decision_tree"
	// ModelRandomForest is a bagged tree ensemble
	ModelRandomForest ModelType = "random_forest"
	// ModelSVM is a support vector machine
	ModelSVM ModelType = "svm"
	// ModelKNN is k-nearest neighbors
	ModelKNN ModelType = "knn"
	// ModelNeuralNetwork is a multi-layer perceptron
	ModelNeuralNetwork ModelType = "neural_network"
)

// ModelTypes returns all supported model types in display order.
func ModelTypes() []ModelType {
	return []ModelType{
		ModelLogistic, ModelDecisionTree, ModelRandomForest,
		ModelSVM, ModelKNN, ModelNeuralNetwork,
	}
}

// Valid reports whether the model type is supported.
func (m ModelType) Valid() bool {
	switch m {
	case ModelLogistic, ModelDecisionTree, ModelRandomForest,
		ModelSVM, ModelKNN, ModelNeuralNetwork:
		return true
	}
	return false
}

// String returns the wire spelling.
func (m ModelType) String() string {
	return string(m)
}

// ParseModelType converts a wire string into a ModelType.
func ParseModelType(s string) (ModelType, error) {
	m := ModelType(s)
	if !m.Valid() {
		return "", errors.NewValidation("model_type",
			"must be one of logistic, decision_tree, random_forest, svm, knn, neural_network; got %q", s)
	}
	return m, nil
}

// Hyperparameters holds the tuning knobs for the selected model, keyed by
// the backend wire names (max_iter, n_estimators, ...). Each model type has
// a closed key set; values are normalized to int, float64, string, or []int
// before storage.
type Hyperparameters map[string]any

// clone returns a copy; slices are duplicated so callers can't alias
// stored state.
func (h Hyperparameters) clone() Hyperparameters {
	if h == nil {
		return nil
	}
	out := make(Hyperparameters, len(h))
	for k, v := range h {
		if list, ok := v.([]int); ok {
			cp := make([]int, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// paramType discriminates the schema entry kinds.
type paramType int

const (
	paramInt paramType = iota
	paramFloat
	paramEnum
	paramIntList
)

// paramSpec bounds a single hyperparameter. For paramIntList, Min/Max bound
// each element and MinLen/MaxLen bound the list length.
type paramSpec struct {
	Type    paramType
	Min     float64
	Max     float64
	Enum    []string
	MinLen  int
	MaxLen  int
	Default any
}

// modelParams is the closed hyperparameter schema per model type. Keys are
// the backend wire names; anything outside this table is rejected.
var modelParams = map[ModelType]map[string]paramSpec{
	ModelLogistic: {
		"max_iter": {Type: paramInt, Min: 100, Max: 5000, Default: 1000},
	},
	ModelDecisionTree: {
		"max_depth":         {Type: paramInt, Min: 1, Max: 20, Default: 10},
		"min_samples_split": {Type: paramInt, Min: 2, Max: 20, Default: 2},
	},
	ModelRandomForest: {
		"n_estimators": {Type: paramInt, Min: 10, Max: 500, Default: 100},
		"max_depth":    {Type: paramInt, Min: 1, Max: 20, Default: 10},
	},
	ModelSVM: {
		"C":      {Type: paramFloat, Min: 0.01, Max: 100, Default: 1.0},
		"kernel": {Type: paramEnum, Enum: []string{"linear", "poly", "rbf", "sigmoid"}, Default: "rbf"},
	},
	ModelKNN: {
		"n_neighbors": {Type: paramInt, Min: 1, Max: 20, Default: 5},
	},
	ModelNeuralNetwork: {
		"hidden_layer_sizes": {Type: paramIntList, Min: 1, Max: 200, MinLen: 1, MaxLen: 3, Default: []int{100}},
		"learning_rate_init": {Type: paramFloat, Min: 0.0001, Max: 0.1, Default: 0.001},
		"max_iter":           {Type: paramInt, Min: 100, Max: 2000, Default: 500},
	},
}

// DefaultHyperparameters returns the default knob values for a model type.
// Unknown model types get an empty map.
func DefaultHyperparameters(mt ModelType) Hyperparameters {
	specs, ok := modelParams[mt]
	if !ok {
		return Hyperparameters{}
	}
	out := make(Hyperparameters, len(specs))
	for key, spec := range specs {
		if list, ok := spec.Default.([]int); ok {
			cp := make([]int, len(list))
			copy(cp, list)
			out[key] = cp
			continue
		}
		out[key] = spec.Default
	}
	return out
}

// HyperparameterKeys returns the allowed wire keys for a model type, sorted.
func HyperparameterKeys(mt ModelType) []string {
	specs := modelParams[mt]
	keys := make([]string, 0, len(specs))
	for key := range specs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizeHyperparameter validates one key/value against the schema for mt
// and returns the value in its storage type. JSON decoding hands numbers
// over as float64, so integer parameters accept whole-valued floats.
func normalizeHyperparameter(mt ModelType, key string, value any) (any, error) {
	spec, ok := modelParams[mt][key]
	if !ok {
		return nil, errors.NewValidation(key,
			"unknown hyperparameter for model %s; allowed: %s",
			mt, strings.Join(HyperparameterKeys(mt), ", "))
	}

	switch spec.Type {
	case paramInt:
		n, ok := coerceInt(value)
		if !ok {
			return nil, errors.NewValidation(key, "must be an integer, got %v", value)
		}
		if float64(n) < spec.Min || float64(n) > spec.Max {
			return nil, errors.NewValidation(key,
				"must be between %d and %d, got %d", int(spec.Min), int(spec.Max), n)
		}
		return n, nil

	case paramFloat:
		f, ok := coerceFloat(value)
		if !ok {
			return nil, errors.NewValidation(key, "must be a number, got %v", value)
		}
		if f < spec.Min || f > spec.Max {
			return nil, errors.NewValidation(key,
				"must be between %g and %g, got %g", spec.Min, spec.Max, f)
		}
		return f, nil

	case paramEnum:
		s, ok := value.(string)
		if !ok {
			return nil, errors.NewValidation(key, "must be a string, got %v", value)
		}
		for _, allowed := range spec.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, errors.NewValidation(key,
			"must be one of %s; got %q", strings.Join(spec.Enum, ", "), s)

	case paramIntList:
		list, err := coerceIntList(key, value)
		if err != nil {
			return nil, err
		}
		if len(list) < spec.MinLen || len(list) > spec.MaxLen {
			return nil, errors.NewValidation(key,
				"must have between %d and %d entries, got %d", spec.MinLen, spec.MaxLen, len(list))
		}
		for _, n := range list {
			if float64(n) < spec.Min || float64(n) > spec.Max {
				return nil, errors.NewValidation(key,
					"entries must be between %d and %d, got %d", int(spec.Min), int(spec.Max), n)
			}
		}
		return list, nil
	}

	return nil, errors.NewValidation(key, "unsupported parameter type")
}

// ValidateHyperparameters checks a full parameter map against the schema
// for mt. The map is rejected as a whole on the first violation; keys are
// checked in sorted order so the reported violation is deterministic.
func ValidateHyperparameters(mt ModelType, params Hyperparameters) error {
	_, err := NormalizeHyperparameters(mt, params)
	return err
}

// NormalizeHyperparameters validates a full parameter map and returns it
// with every value in its storage type (JSON float64s folded back to ints,
// lists to []int). The input is never mutated; the map is rejected as a
// whole on the first violation, keys in sorted order so the reported
// violation is deterministic.
func NormalizeHyperparameters(mt ModelType, params Hyperparameters) (Hyperparameters, error) {
	out := make(Hyperparameters, len(params))
	for _, key := range sortedKeys(params) {
		normalized, err := normalizeHyperparameter(mt, key, params[key])
		if err != nil {
			return nil, err
		}
		out[key] = normalized
	}
	return out, nil
}

// coerceInt accepts int, int64, and whole-valued float64.
func coerceInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		result := int(v)
		if float64(result) != v {
			return 0, false
		}
		return result, true
	}
	return 0, false
}

// coerceFloat accepts any finite numeric value.
func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// coerceIntList accepts []int and JSON-decoded []any of whole numbers.
func coerceIntList(key string, value any) ([]int, error) {
	switch v := value.(type) {
	case []int:
		cp := make([]int, len(v))
		copy(cp, v)
		return cp, nil
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			n, ok := coerceInt(item)
			if !ok {
				return nil, errors.NewValidation(key,
					"must be a list of integers, got %v", item)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return nil, errors.NewValidation(key, "must be a list of integers, got %v", value)
}

// mergeHyperparameters applies updates onto current, validating every
// provided key against the schema for mt. Either every update lands or none
// does.
func mergeHyperparameters(mt ModelType, current Hyperparameters, updates map[string]any) (Hyperparameters, error) {
	merged := current.clone()
	if merged == nil {
		merged = make(Hyperparameters, len(updates))
	}
	for _, key := range sortedKeys(updates) {
		normalized, err := normalizeHyperparameter(mt, key, updates[key])
		if err != nil {
			return nil, err
		}
		merged[key] = normalized
	}
	return merged, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
