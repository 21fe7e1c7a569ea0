package stage

import (
	"fmt"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// Kind identifies a pipeline stage type. The set is closed: the builder
// knows exactly six stages and their canonical order.
type Kind string

const (
	// KindDataset is the data upload and inspection stage
	KindDataset Kind = "dataset"
	// KindPreprocess is the scaling stage (standardization/normalization)
	KindPreprocess Kind = "preprocess"
	// KindFeature is the feature engineering stage
	KindFeature Kind = "feature"
	// KindSplit is the train/test split stage
	KindSplit Kind = "split"
	// KindModel is the model selection stage
	KindModel Kind = "model"
	// KindResults is the results inspection stage
	KindResults Kind = "results"
)

// kindOrder fixes the canonical pipeline order. Data flows
// dataset → preprocess → feature → split → model → results.
var kindOrder = map[Kind]int{
	KindDataset:    0,
	KindPreprocess: 1,
	KindFeature:    2,
	KindSplit:      3,
	KindModel:      4,
	KindResults:    5,
}

// Kinds returns all stage kinds in canonical pipeline order.
func Kinds() []Kind {
	return []Kind{KindDataset, KindPreprocess, KindFeature, KindSplit, KindModel, KindResults}
}

// Valid reports whether k is one of the six known stage kinds.
func (k Kind) Valid() bool {
	_, ok := kindOrder[k]
	return ok
}

// Order returns the canonical pipeline position of k (0-based).
// Unknown kinds sort last.
func (k Kind) Order() int {
	if pos, ok := kindOrder[k]; ok {
		return pos
	}
	return len(kindOrder)
}

// String returns the wire spelling of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a wire string into a Kind, rejecting anything outside
// the closed set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, s),
			"Kind", "ParseKind", "stage kind validation")
	}
	return k, nil
}
