// Package suggest proposes the next stage to add to the canvas. The engine
// is a fixed priority table, not a ranker: the same placement always yields
// the same suggestions, in the same order.
package suggest

import (
	"github.com/Mohammedsanin/NeuroBlock/stage"
)

// Impact grades how much a suggestion unblocks.
type Impact string

const (
	// ImpactHigh marks stages the pipeline cannot run without
	ImpactHigh Impact = "high"
	// ImpactMedium marks stages that improve results but don't gate training
	ImpactMedium Impact = "medium"
	// ImpactLow marks optional polish
	ImpactLow Impact = "low"
)

// MaxSuggestions caps how many entries For returns.
const MaxSuggestions = 2

// Suggestion names a missing stage worth adding next.
type Suggestion struct {
	Kind      stage.Kind `json:"kind"`
	Rationale string     `json:"rationale"`
	Impact    Impact     `json:"impact"`
}

// For returns up to MaxSuggestions missing stages, by fixed priority:
// a missing dataset dominates everything, then a missing model, then the
// optional split and preprocess stages in that order. Placed kinds are
// never suggested, whatever their status.
func For(placed []stage.Kind) []Suggestion {
	onCanvas := make(map[stage.Kind]bool, len(placed))
	for _, kind := range placed {
		onCanvas[kind] = true
	}

	if !onCanvas[stage.KindDataset] {
		return []Suggestion{{
			Kind:      stage.KindDataset,
			Rationale: "the pipeline cannot proceed without data; add a dataset stage and upload a file",
			Impact:    ImpactHigh,
		}}
	}

	if !onCanvas[stage.KindModel] {
		return []Suggestion{{
			Kind:      stage.KindModel,
			Rationale: "choose a model to make the pipeline trainable",
			Impact:    ImpactHigh,
		}}
	}

	var out []Suggestion
	if !onCanvas[stage.KindSplit] {
		out = append(out, Suggestion{
			Kind:      stage.KindSplit,
			Rationale: "a train/test split gives an honest estimate of model performance",
			Impact:    ImpactMedium,
		})
	}
	if !onCanvas[stage.KindPreprocess] && len(out) < MaxSuggestions {
		out = append(out, Suggestion{
			Kind:      stage.KindPreprocess,
			Rationale: "scaling features before training often improves accuracy",
			Impact:    ImpactMedium,
		})
	}
	return out
}
