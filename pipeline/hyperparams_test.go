package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// Test wire string round-trips for every supported model
func TestParseModelType(t *testing.T) {
	for _, mt := range ModelTypes() {
		parsed, err := ParseModelType(mt.String())
		require.NoError(t, err)
		assert.Equal(t, mt, parsed)
	}

	for _, bad := range []string{"", "foo", "Logistic", "random forest"} {
		_, err := ParseModelType(bad)
		require.Error(t, err, "input %q", bad)
		assert.True(t, errors.IsValidation(err))
		assert.Equal(t, "model_type", errors.ValidationField(err))
	}
}

// Test that defaults cover the full key set and validate cleanly
func TestDefaultHyperparameters(t *testing.T) {
	for _, mt := range ModelTypes() {
		defaults := DefaultHyperparameters(mt)
		assert.ElementsMatch(t, HyperparameterKeys(mt), sortedKeys(defaults))
		assert.NoError(t, ValidateHyperparameters(mt, defaults))
	}

	// unknown model yields an empty map, not nil
	assert.NotNil(t, DefaultHyperparameters(ModelType("foo")))
	assert.Empty(t, DefaultHyperparameters(ModelType("foo")))
}

// Test that mutating a returned default list does not poison later calls
func TestDefaultHyperparameters_ListIsolation(t *testing.T) {
	first := DefaultHyperparameters(ModelNeuralNetwork)
	layers, ok := first["hidden_layer_sizes"].([]int)
	require.True(t, ok)
	layers[0] = 9999

	second := DefaultHyperparameters(ModelNeuralNetwork)
	assert.Equal(t, []int{100}, second["hidden_layer_sizes"])
}

// Test per-model validation: bounds, enums, type coercion, unknown keys
func TestValidateHyperparameters(t *testing.T) {
	tests := []struct {
		name      string
		model     ModelType
		params    Hyperparameters
		wantErr   bool
		wantField string
	}{
		{
			name:   "logistic max_iter in range",
			model:  ModelLogistic,
			params: Hyperparameters{"max_iter": 1000},
		},
		{
			name:      "logistic max_iter below minimum",
			model:     ModelLogistic,
			params:    Hyperparameters{"max_iter": 50},
			wantErr:   true,
			wantField: "max_iter",
		},
		{
			name:      "logistic max_iter above maximum",
			model:     ModelLogistic,
			params:    Hyperparameters{"max_iter": 10000},
			wantErr:   true,
			wantField: "max_iter",
		},
		{
			name:   "logistic whole float accepted as int",
			model:  ModelLogistic,
			params: Hyperparameters{"max_iter": float64(1500)},
		},
		{
			name:      "logistic fractional float rejected for int param",
			model:     ModelLogistic,
			params:    Hyperparameters{"max_iter": 1500.5},
			wantErr:   true,
			wantField: "max_iter",
		},
		{
			name:      "NaN rejected",
			model:     ModelLogistic,
			params:    Hyperparameters{"max_iter": math.NaN()},
			wantErr:   true,
			wantField: "max_iter",
		},
		{
			name:      "unknown key rejected",
			model:     ModelLogistic,
			params:    Hyperparameters{"n_estimators": 100},
			wantErr:   true,
			wantField: "n_estimators",
		},
		{
			name:   "decision tree depth and split",
			model:  ModelDecisionTree,
			params: Hyperparameters{"max_depth": 5, "min_samples_split": 4},
		},
		{
			name:      "decision tree min_samples_split too small",
			model:     ModelDecisionTree,
			params:    Hyperparameters{"min_samples_split": 1},
			wantErr:   true,
			wantField: "min_samples_split",
		},
		{
			name:   "svm float C and enum kernel",
			model:  ModelSVM,
			params: Hyperparameters{"C": 0.5, "kernel": "linear"},
		},
		{
			name:      "svm kernel outside enum",
			model:     ModelSVM,
			params:    Hyperparameters{"kernel": "cubic"},
			wantErr:   true,
			wantField: "kernel",
		},
		{
			name:      "svm kernel wrong type",
			model:     ModelSVM,
			params:    Hyperparameters{"kernel": 3},
			wantErr:   true,
			wantField: "kernel",
		},
		{
			name:      "svm C above maximum",
			model:     ModelSVM,
			params:    Hyperparameters{"C": 1000.0},
			wantErr:   true,
			wantField: "C",
		},
		{
			name:   "knn neighbors",
			model:  ModelKNN,
			params: Hyperparameters{"n_neighbors": 3},
		},
		{
			name:   "neural network layer list",
			model:  ModelNeuralNetwork,
			params: Hyperparameters{"hidden_layer_sizes": []int{64, 32}},
		},
		{
			name:   "neural network layers from JSON decode",
			model:  ModelNeuralNetwork,
			params: Hyperparameters{"hidden_layer_sizes": []any{float64(64), float64(32)}},
		},
		{
			name:      "neural network too many layers",
			model:     ModelNeuralNetwork,
			params:    Hyperparameters{"hidden_layer_sizes": []int{10, 10, 10, 10}},
			wantErr:   true,
			wantField: "hidden_layer_sizes",
		},
		{
			name:      "neural network empty layer list",
			model:     ModelNeuralNetwork,
			params:    Hyperparameters{"hidden_layer_sizes": []int{}},
			wantErr:   true,
			wantField: "hidden_layer_sizes",
		},
		{
			name:      "neural network layer width out of range",
			model:     ModelNeuralNetwork,
			params:    Hyperparameters{"hidden_layer_sizes": []int{500}},
			wantErr:   true,
			wantField: "hidden_layer_sizes",
		},
		{
			name:      "neural network fractional layer entry",
			model:     ModelNeuralNetwork,
			params:    Hyperparameters{"hidden_layer_sizes": []any{64.5}},
			wantErr:   true,
			wantField: "hidden_layer_sizes",
		},
		{
			name:   "neural network learning rate",
			model:  ModelNeuralNetwork,
			params: Hyperparameters{"learning_rate_init": 0.01},
		},
		{
			name:      "neural network learning rate too small",
			model:     ModelNeuralNetwork,
			params:    Hyperparameters{"learning_rate_init": 0.00001},
			wantErr:   true,
			wantField: "learning_rate_init",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHyperparameters(tt.model, tt.params)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, tt.wantField, errors.ValidationField(err))
		})
	}
}

// Test that merging keeps unspecified keys and rejects atomically
func TestMergeHyperparameters(t *testing.T) {
	current := DefaultHyperparameters(ModelRandomForest)

	merged, err := mergeHyperparameters(ModelRandomForest, current,
		map[string]any{"n_estimators": float64(200)})
	require.NoError(t, err)
	assert.Equal(t, 200, merged["n_estimators"])
	assert.Equal(t, 10, merged["max_depth"], "unspecified key keeps its value")
	assert.Equal(t, 100, current["n_estimators"], "input map untouched")

	// one bad key fails the whole update
	_, err = mergeHyperparameters(ModelRandomForest, current,
		map[string]any{"n_estimators": 300, "max_depth": 99})
	require.Error(t, err)
	assert.Equal(t, "max_depth", errors.ValidationField(err))
}

// Test deterministic first-violation reporting across map orderings
func TestValidateHyperparameters_DeterministicError(t *testing.T) {
	params := Hyperparameters{
		"n_estimators": 9999,
		"max_depth":    99,
	}
	for i := 0; i < 20; i++ {
		err := ValidateHyperparameters(ModelRandomForest, params)
		require.Error(t, err)
		// "max_depth" sorts before "n_estimators"
		assert.Equal(t, "max_depth", errors.ValidationField(err))
	}
}
