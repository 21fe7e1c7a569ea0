package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mohammedsanin/NeuroBlock/canvas"
	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/stage"
)

// SchemaVersion is the document format version, semver. Import accepts
// documents with the same major version only.
const SchemaVersion = "1.0.0"

// DefaultName is used when a pipeline is exported without a name.
const DefaultName = "Untitled Pipeline"

// StagePlacement is one canvas entry in a document.
type StagePlacement struct {
	Kind     stage.Kind      `json:"kind"`
	Position canvas.Position `json:"position"`
}

// GridSearchDoc is the exportable slice of grid search state. IsSearching
// is deliberately absent: a document must never claim a search is running.
type GridSearchDoc struct {
	Enabled        bool               `json:"enabled"`
	SearchComplete bool               `json:"search_complete"`
	BestParams     map[string]float64 `json:"best_params,omitempty"`
	BestScore      float64            `json:"best_score"`
}

// ModelDoc is the exportable model stage block.
type ModelDoc struct {
	Type            pipeline.ModelType             `json:"type"`
	Hyperparameters pipeline.Hyperparameters       `json:"hyperparameters"`
	CrossValidation pipeline.CrossValidationConfig `json:"cross_validation"`
	GridSearch      GridSearchDoc                  `json:"grid_search"`
}

// Document is the versioned serialization of a whole builder pipeline:
// canvas placement plus every stage configuration. It carries the dataset
// summary for display but never the backend session id or preview rows, so
// an imported pipeline needs a fresh upload before it can train.
type Document struct {
	Version    string                    `json:"version"`
	Name       string                    `json:"name"`
	ExportedAt time.Time                 `json:"exported_at"`
	Stages     []StagePlacement          `json:"stages"`
	Dataset    *pipeline.Summary         `json:"dataset"`
	Preprocess pipeline.PreprocessConfig `json:"preprocess"`
	Feature    pipeline.FeatureConfig    `json:"feature"`
	Split      pipeline.SplitConfig      `json:"split"`
	Model      ModelDoc                  `json:"model"`
}

// Export builds a document from the current canvas and configuration.
// Stages are written in canonical stage order, so exporting the same state
// twice produces identical bytes except for the timestamp.
func Export(name string, placed []canvas.PlacedStage, snap pipeline.Snapshot, now time.Time) Document {
	if name == "" {
		name = DefaultName
	}

	stages := make([]StagePlacement, 0, len(placed))
	for _, p := range placed {
		stages = append(stages, StagePlacement{Kind: p.Kind, Position: p.Position})
	}
	sort.Slice(stages, func(i, j int) bool {
		return stages[i].Kind.Order() < stages[j].Kind.Order()
	})

	return Document{
		Version:    SchemaVersion,
		Name:       name,
		ExportedAt: now.UTC(),
		Stages:     stages,
		Dataset:    snap.Summary,
		Preprocess: snap.Preprocess,
		Feature:    snap.Feature,
		Split:      snap.Split,
		Model: ModelDoc{
			Type:            snap.Model.Type,
			Hyperparameters: snap.Model.Hyperparameters,
			CrossValidation: snap.Model.CrossValidation,
			GridSearch: GridSearchDoc{
				Enabled:        snap.Model.GridSearch.Enabled,
				SearchComplete: snap.Model.GridSearch.SearchComplete,
				BestParams:     snap.Model.GridSearch.BestParams,
				BestScore:      snap.Model.GridSearch.BestScore,
			},
		},
	}
}

// Marshal renders the document as pretty-printed JSON. All document bytes
// in the system (export endpoint, saved files) come from here so the
// byte-for-byte round-trip guarantee holds everywhere.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.WrapFatal(err, "Document", "Marshal", "encode document")
	}
	return data, nil
}

// Parse validates raw JSON and returns the document it describes. The
// checks run in a fixed order (schema shape, version, stages, dataset,
// configs, model) and stop at the first violation, which is named in the
// returned import rejection. Hyperparameter values are folded to their
// storage types on success.
func Parse(raw []byte) (*Document, error) {
	if err := validateShape(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, reject("Parse", "not valid JSON: %v", err)
	}

	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}
	if err := checkStages(doc.Stages); err != nil {
		return nil, err
	}
	if err := checkDataset(doc.Dataset); err != nil {
		return nil, err
	}
	if err := doc.Feature.Validate(); err != nil {
		return nil, reject("Parse", "feature config: %v", err)
	}
	if err := doc.Split.Validate(); err != nil {
		return nil, reject("Parse", "split config: %v", err)
	}
	if err := doc.Model.CrossValidation.Validate(); err != nil {
		return nil, reject("Parse", "cross-validation config: %v", err)
	}
	if err := checkModel(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Apply swaps a parsed document into the live layout and store. The
// layout restore validates and commits atomically; the store restore
// cannot fail, so a rejected document leaves both untouched. The restored
// dataset is summary-only: training requires a fresh upload.
func Apply(doc *Document, layout *canvas.Layout, store *pipeline.Store) error {
	placed := make([]canvas.PlacedStage, 0, len(doc.Stages))
	for _, s := range doc.Stages {
		placed = append(placed, canvas.PlacedStage{Kind: s.Kind, Position: s.Position})
	}
	if err := layout.Restore(placed); err != nil {
		return reject("Apply", "restore layout: %v", err)
	}

	model := pipeline.ModelConfig{
		Type:            doc.Model.Type,
		Hyperparameters: doc.Model.Hyperparameters,
		CrossValidation: doc.Model.CrossValidation,
		GridSearch: pipeline.GridSearchConfig{
			Enabled:        doc.Model.GridSearch.Enabled,
			SearchComplete: doc.Model.GridSearch.SearchComplete,
			BestParams:     doc.Model.GridSearch.BestParams,
			BestScore:      doc.Model.GridSearch.BestScore,
		},
	}
	store.Restore(doc.Preprocess, doc.Feature, doc.Split, model, doc.Dataset)
	return nil
}

// reject builds a classified import rejection naming the violation.
func reject(operation, format string, args ...any) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrImportRejected, fmt.Sprintf(format, args...)),
		"Document", operation, "validate document")
}

// checkVersion accepts the same major version only.
func checkVersion(version string) error {
	major, ok := semverMajor(version)
	if !ok {
		return reject("Parse", "malformed version %q", version)
	}
	supported, _ := semverMajor(SchemaVersion)
	if major != supported {
		return reject("Parse", "unsupported document version %q, this build reads %d.x", version, supported)
	}
	return nil
}

func semverMajor(version string) (int, bool) {
	head, _, found := strings.Cut(version, ".")
	if !found {
		return 0, false
	}
	major, err := strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, false
	}
	return major, true
}

func checkStages(stages []StagePlacement) error {
	seen := make(map[stage.Kind]bool, len(stages))
	for i, s := range stages {
		if !s.Kind.Valid() {
			return reject("Parse", "stages[%d]: unknown stage kind %q", i, string(s.Kind))
		}
		if seen[s.Kind] {
			return reject("Parse", "stages[%d]: duplicate stage %s", i, s.Kind)
		}
		seen[s.Kind] = true
		if s.Position.X < 0 || s.Position.Y < 0 {
			return reject("Parse", "stages[%d]: negative position (%d,%d)", i, s.Position.X, s.Position.Y)
		}
	}
	return nil
}

func checkDataset(summary *pipeline.Summary) error {
	if summary == nil {
		return nil
	}
	if summary.FileName == "" {
		return reject("Parse", "dataset: missing file name")
	}
	if summary.Rows < 1 {
		return reject("Parse", "dataset: rows must be positive, got %d", summary.Rows)
	}
	if len(summary.Columns) == 0 {
		return reject("Parse", "dataset: no columns")
	}
	return nil
}

func checkModel(doc *Document) error {
	if doc.Model.Type == "" {
		if len(doc.Model.Hyperparameters) > 0 {
			return reject("Parse", "model: hyperparameters present without a model type")
		}
		return nil
	}
	if !doc.Model.Type.Valid() {
		return reject("Parse", "model: unknown model type %q", string(doc.Model.Type))
	}

	if doc.Model.Hyperparameters == nil {
		// same semantics as choosing the model in the UI
		doc.Model.Hyperparameters = pipeline.DefaultHyperparameters(doc.Model.Type)
		return nil
	}
	normalized, err := pipeline.NormalizeHyperparameters(doc.Model.Type, doc.Model.Hyperparameters)
	if err != nil {
		return reject("Parse", "model hyperparameters: %v", err)
	}
	doc.Model.Hyperparameters = normalized
	return nil
}
