package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedsanin/NeuroBlock/canvas"
	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/stage"
)

var exportTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// testLayout returns a canvas with all six stages placed, deliberately out
// of canonical order.
func testLayout(t *testing.T) *canvas.Layout {
	t.Helper()
	layout := canvas.NewLayout()
	order := []stage.Kind{
		stage.KindModel, stage.KindDataset, stage.KindResults,
		stage.KindPreprocess, stage.KindSplit, stage.KindFeature,
	}
	for i, kind := range order {
		_, err := layout.Place(kind, canvas.Position{X: 64 + 96*i, Y: 64})
		require.NoError(t, err)
	}
	return layout
}

func testSummary() *pipeline.Summary {
	return &pipeline.Summary{
		FileName: "titanic.csv",
		Rows:     891,
		Columns:  []string{"age", "fare", "sex", "survived"},
		ColumnTypes: map[string]pipeline.ColumnType{
			"age":      pipeline.ColumnNumeric,
			"fare":     pipeline.ColumnNumeric,
			"sex":      pipeline.ColumnCategorical,
			"survived": pipeline.ColumnNumeric,
		},
	}
}

// testStore returns a store holding a fully configured pipeline with
// non-default values in every section.
func testStore(t *testing.T) *pipeline.Store {
	t.Helper()
	store := pipeline.NewStore()
	store.Restore(
		pipeline.PreprocessConfig{Standardization: true},
		pipeline.FeatureConfig{
			HandleMissing:    true,
			MissingStrategy:  pipeline.MissingMedian,
			EncodeCategories: true,
			EncodingMethod:   pipeline.EncodingLabel,
			CreateFeatures:   true,
			FeatureTypes:     []string{"polynomial", "interaction"},
		},
		pipeline.SplitConfig{TrainPercent: 80},
		pipeline.ModelConfig{
			Type:            pipeline.ModelRandomForest,
			Hyperparameters: pipeline.Hyperparameters{"n_estimators": 200, "max_depth": 5},
			CrossValidation: pipeline.CrossValidationConfig{
				Enabled: true, Folds: 10, Stratified: true, Shuffle: true,
			},
			GridSearch: pipeline.GridSearchConfig{
				Enabled:        true,
				SearchComplete: true,
				BestParams:     map[string]float64{"max_depth": 8, "n_estimators": 300},
				BestScore:      0.913,
			},
		},
		testSummary(),
	)
	return store
}

// mutateDoc marshals doc, applies fn to the generic JSON tree, and returns
// the re-marshaled bytes.
func mutateDoc(t *testing.T, doc Document, fn func(m map[string]any)) []byte {
	t.Helper()
	data, err := doc.Marshal()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	fn(m)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}

// importInto runs the full import path: parse then apply.
func importInto(raw []byte, layout *canvas.Layout, store *pipeline.Store) error {
	doc, err := Parse(raw)
	if err != nil {
		return err
	}
	return Apply(doc, layout, store)
}

// TestExport_CanonicalForm checks that exports are deterministic: stages in
// canonical order regardless of placement order, default name, UTC stamp,
// and no machine-bound state in the bytes.
func TestExport_CanonicalForm(t *testing.T) {
	layout := testLayout(t)
	store := testStore(t)

	doc := Export("", layout.Placed(), store.Snapshot(), exportTime)

	assert.Equal(t, SchemaVersion, doc.Version)
	assert.Equal(t, DefaultName, doc.Name)
	assert.Equal(t, exportTime, doc.ExportedAt)

	kinds := make([]stage.Kind, 0, len(doc.Stages))
	for _, s := range doc.Stages {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, stage.Kinds(), kinds, "stages must be in canonical order")

	require.NotNil(t, doc.Dataset)
	assert.Equal(t, "titanic.csv", doc.Dataset.FileName)

	data, err := doc.Marshal()
	require.NoError(t, err)
	for _, banned := range []string{"session_id", "preview", "is_searching"} {
		assert.NotContains(t, string(data), banned)
	}
}

// TestDocument_RoundTrip verifies the core portability guarantee: export,
// import into a fresh canvas and store, export again, and get the same
// bytes back when the timestamp is held fixed.
func TestDocument_RoundTrip(t *testing.T) {
	first, err := Export("Titanic Survival", testLayout(t).Placed(), testStore(t).Snapshot(), exportTime).Marshal()
	require.NoError(t, err)

	doc, err := Parse(first)
	require.NoError(t, err)

	layout := canvas.NewLayout()
	store := pipeline.NewStore()
	require.NoError(t, Apply(doc, layout, store))

	// the imported pipeline carries the dataset summary but no session
	assert.False(t, store.HasDataset())
	require.NotNil(t, store.DatasetSummary())
	assert.Equal(t, "titanic.csv", store.DatasetSummary().FileName)

	second, err := Export(doc.Name, layout.Placed(), store.Snapshot(), exportTime).Marshal()
	require.NoError(t, err)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("round-trip changed the document (-export +reimport):\n%s", diff)
	}
}

// TestDocument_RoundTrip_Minimal covers the empty-pipeline document: no
// stages, no dataset, no model. Null fields must survive the trip.
func TestDocument_RoundTrip_Minimal(t *testing.T) {
	store := pipeline.NewStore()
	first, err := Export("Fresh Start", nil, store.Snapshot(), exportTime).Marshal()
	require.NoError(t, err)

	doc, err := Parse(first)
	require.NoError(t, err)
	assert.Nil(t, doc.Dataset)

	layout := canvas.NewLayout()
	target := pipeline.NewStore()
	require.NoError(t, Apply(doc, layout, target))
	assert.Equal(t, 0, layout.Count())

	second, err := Export(doc.Name, layout.Placed(), target.Snapshot(), exportTime).Marshal()
	require.NoError(t, err)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("round-trip changed the document (-export +reimport):\n%s", diff)
	}
}

// TestDocument_RoundTrip_ListParams exercises the one list-valued
// hyperparameter through the trip.
func TestDocument_RoundTrip_ListParams(t *testing.T) {
	store := pipeline.NewStore()
	store.Restore(
		pipeline.PreprocessConfig{},
		pipeline.DefaultFeatureConfig(),
		pipeline.DefaultSplitConfig(),
		pipeline.ModelConfig{
			Type: pipeline.ModelNeuralNetwork,
			Hyperparameters: pipeline.Hyperparameters{
				"hidden_layer_sizes": []int{64, 32},
				"learning_rate_init": 0.01,
				"max_iter":           500,
			},
			CrossValidation: pipeline.CrossValidationConfig{Folds: 5},
		},
		nil,
	)

	first, err := Export("MLP", nil, store.Snapshot(), exportTime).Marshal()
	require.NoError(t, err)

	doc, err := Parse(first)
	require.NoError(t, err)
	assert.Equal(t, []int{64, 32}, doc.Model.Hyperparameters["hidden_layer_sizes"])

	layout := canvas.NewLayout()
	target := pipeline.NewStore()
	require.NoError(t, Apply(doc, layout, target))

	second, err := Export(doc.Name, layout.Placed(), target.Snapshot(), exportTime).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

// TestImport_UnknownStageKind checks that a document naming a stage kind
// this build does not know is rejected outright and that the running
// pipeline is left exactly as it was.
func TestImport_UnknownStageKind(t *testing.T) {
	raw := mutateDoc(t, Export("x", testLayout(t).Placed(), testStore(t).Snapshot(), exportTime),
		func(m map[string]any) {
			m["stages"].([]any)[0].(map[string]any)["kind"] = "foo"
		})

	layout := testLayout(t)
	store := testStore(t)
	revBefore := store.Revision()
	placedBefore := layout.Placed()

	err := importInto(raw, layout, store)
	require.Error(t, err)
	assert.True(t, errors.IsImportRejected(err))
	assert.Contains(t, err.Error(), `unknown stage kind "foo"`)

	assert.Equal(t, revBefore, store.Revision())
	assert.Equal(t, placedBefore, layout.Placed())
	assert.Equal(t, pipeline.ModelRandomForest, store.Model().Type)
}

// TestParse_VersionGate accepts any document from the same major version
// and rejects the rest.
func TestParse_VersionGate(t *testing.T) {
	base := Export("v", nil, pipeline.NewStore().Snapshot(), exportTime)

	tests := []struct {
		name    string
		version string
		wantErr string
	}{
		{name: "current version", version: "1.0.0"},
		{name: "newer minor", version: "1.9.9"},
		{name: "next major", version: "2.0.0", wantErr: "this build reads 1.x"},
		{name: "older major", version: "0.9.0", wantErr: "this build reads 1.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mutateDoc(t, base, func(m map[string]any) {
				m["version"] = tt.version
			})
			_, err := Parse(raw)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsImportRejected(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestParse_ShapeViolations checks the schema gate: structurally broken
// documents are rejected before any semantic checks run.
func TestParse_ShapeViolations(t *testing.T) {
	base := Export("s", testLayout(t).Placed(), testStore(t).Snapshot(), exportTime)

	tests := []struct {
		name   string
		raw    func(t *testing.T) []byte
		wantIn string
	}{
		{
			name:   "not json",
			raw:    func(t *testing.T) []byte { return []byte("{nope") },
			wantIn: "not valid JSON",
		},
		{
			name: "missing name",
			raw: func(t *testing.T) []byte {
				return mutateDoc(t, base, func(m map[string]any) { delete(m, "name") })
			},
			wantIn: "name is required",
		},
		{
			name: "empty name",
			raw: func(t *testing.T) []byte {
				return mutateDoc(t, base, func(m map[string]any) { m["name"] = "" })
			},
			wantIn: "name",
		},
		{
			name: "stages not a list",
			raw: func(t *testing.T) []byte {
				return mutateDoc(t, base, func(m map[string]any) { m["stages"] = "everywhere" })
			},
			wantIn: "stages",
		},
		{
			name: "fractional position",
			raw: func(t *testing.T) []byte {
				return mutateDoc(t, base, func(m map[string]any) {
					m["stages"].([]any)[0].(map[string]any)["position"].(map[string]any)["x"] = 1.5
				})
			},
			wantIn: "integer",
		},
		{
			name: "malformed version string",
			raw: func(t *testing.T) []byte {
				return mutateDoc(t, base, func(m map[string]any) { m["version"] = "one.two" })
			},
			wantIn: "version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw(t))
			require.Error(t, err)
			assert.True(t, errors.IsImportRejected(err))
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

// TestParse_SemanticViolations checks the domain rules that run after the
// shape gate. Each case names its violation in the rejection.
func TestParse_SemanticViolations(t *testing.T) {
	base := Export("s", testLayout(t).Placed(), testStore(t).Snapshot(), exportTime)

	tests := []struct {
		name   string
		mutate func(m map[string]any)
		wantIn string
	}{
		{
			name: "duplicate stage",
			mutate: func(m map[string]any) {
				stages := m["stages"].([]any)
				m["stages"] = append(stages, stages[0])
			},
			wantIn: "duplicate stage",
		},
		{
			name: "negative position",
			mutate: func(m map[string]any) {
				m["stages"].([]any)[2].(map[string]any)["position"].(map[string]any)["y"] = -32
			},
			wantIn: "negative position",
		},
		{
			name: "dataset with zero rows",
			mutate: func(m map[string]any) {
				m["dataset"].(map[string]any)["rows"] = 0
			},
			wantIn: "rows must be positive",
		},
		{
			name: "dataset without file name",
			mutate: func(m map[string]any) {
				m["dataset"].(map[string]any)["file_name"] = ""
			},
			wantIn: "missing file name",
		},
		{
			name: "split below minimum",
			mutate: func(m map[string]any) {
				m["split"].(map[string]any)["train_percent"] = 45
			},
			wantIn: "split config",
		},
		{
			name: "cross-validation folds out of range",
			mutate: func(m map[string]any) {
				m["model"].(map[string]any)["cross_validation"].(map[string]any)["folds"] = 1
			},
			wantIn: "cross-validation config",
		},
		{
			name: "unknown missing strategy",
			mutate: func(m map[string]any) {
				m["feature"].(map[string]any)["missing_strategy"] = "wish"
			},
			wantIn: "feature config",
		},
		{
			name: "duplicate feature type",
			mutate: func(m map[string]any) {
				m["feature"].(map[string]any)["feature_types"] = []any{"binning", "binning"}
			},
			wantIn: "feature config",
		},
		{
			name: "unknown model type",
			mutate: func(m map[string]any) {
				m["model"].(map[string]any)["type"] = "quantum"
			},
			wantIn: `unknown model type "quantum"`,
		},
		{
			name: "hyperparameters without model type",
			mutate: func(m map[string]any) {
				m["model"].(map[string]any)["type"] = ""
			},
			wantIn: "hyperparameters present without a model type",
		},
		{
			name: "hyperparameter below minimum",
			mutate: func(m map[string]any) {
				m["model"].(map[string]any)["hyperparameters"].(map[string]any)["n_estimators"] = 5
			},
			wantIn: "model hyperparameters",
		},
		{
			name: "hyperparameter key not in model schema",
			mutate: func(m map[string]any) {
				m["model"].(map[string]any)["hyperparameters"].(map[string]any)["learning_rate"] = 0.1
			},
			wantIn: "model hyperparameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(mutateDoc(t, base, tt.mutate))
			require.Error(t, err)
			assert.True(t, errors.IsImportRejected(err), "want import rejection, got %v", err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

// TestParse_NormalizesHyperparameters checks that JSON numbers come out of
// a successful parse in their storage types and that a null block is
// filled with the model's defaults.
func TestParse_NormalizesHyperparameters(t *testing.T) {
	base := Export("n", testLayout(t).Placed(), testStore(t).Snapshot(), exportTime)

	t.Run("numbers fold to int", func(t *testing.T) {
		raw := mutateDoc(t, base, func(m map[string]any) {
			m["model"].(map[string]any)["hyperparameters"] = map[string]any{
				"n_estimators": 250.0,
				"max_depth":    5,
			}
		})
		doc, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, 250, doc.Model.Hyperparameters["n_estimators"])
		assert.Equal(t, 5, doc.Model.Hyperparameters["max_depth"])
	})

	t.Run("null block gets defaults", func(t *testing.T) {
		raw := mutateDoc(t, base, func(m map[string]any) {
			m["model"].(map[string]any)["hyperparameters"] = nil
		})
		doc, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, pipeline.DefaultHyperparameters(pipeline.ModelRandomForest),
			doc.Model.Hyperparameters)
	})
}

// TestApply_SnapsPositions confirms imported positions go through the same
// grid snap as interactive placement.
func TestApply_SnapsPositions(t *testing.T) {
	base := Export("snap", testLayout(t).Placed(), testStore(t).Snapshot(), exportTime)
	raw := mutateDoc(t, base, func(m map[string]any) {
		m["stages"].([]any)[0].(map[string]any)["position"].(map[string]any)["x"] = 45
	})

	doc, err := Parse(raw)
	require.NoError(t, err)

	layout := canvas.NewLayout()
	require.NoError(t, Apply(doc, layout, pipeline.NewStore()))

	pos, ok := layout.Position(doc.Stages[0].Kind)
	require.True(t, ok)
	assert.Equal(t, 32, pos.X)
}
