// Package status derives stage lifecycle statuses from pipeline state.
// Status is a pure projection: nothing here is stored or transitioned, so
// a reloaded or imported pipeline can never disagree with its own configs.
package status

import (
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/stage"
)

// Status is a stage's derived lifecycle indicator.
type Status string

const (
	// Pending means the stage has no meaningful configuration yet
	Pending Status = "pending"
	// Configured means the stage has user-chosen settings applied
	Configured Status = "configured"
	// Completed means the stage's effect is externally verifiable:
	// data uploaded, or a training result produced
	Completed Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case Pending, Configured, Completed:
		return true
	}
	return false
}

// String returns the wire spelling.
func (s Status) String() string {
	return string(s)
}

// For computes the status of one stage kind from a pipeline snapshot.
// hasResult reports whether a successful training result is held; only the
// results stage reads it.
//
// Dataset and results are the only kinds that can reach Completed, since
// their effect exists outside the builder. Configuration-only stages cap
// at Configured: toggling a flag is not an accomplishment.
func For(kind stage.Kind, snap pipeline.Snapshot, hasResult bool) Status {
	switch kind {
	case stage.KindDataset:
		if snap.HasDataset() {
			return Completed
		}
		return Pending

	case stage.KindPreprocess:
		if snap.Preprocess.Configured() {
			return Configured
		}
		return Pending

	case stage.KindFeature:
		if snap.Feature.Configured() {
			return Configured
		}
		return Pending

	case stage.KindSplit:
		// the ratio always has a default, so the split is configured as
		// soon as there is data to split
		if snap.HasDataset() {
			return Configured
		}
		return Pending

	case stage.KindModel:
		if snap.Model.Selected() {
			return Configured
		}
		return Pending

	case stage.KindResults:
		if hasResult {
			return Completed
		}
		return Pending
	}

	return Pending
}

// All computes the status of every stage kind in canonical order.
func All(snap pipeline.Snapshot, hasResult bool) map[stage.Kind]Status {
	out := make(map[stage.Kind]Status, len(stage.Kinds()))
	for _, kind := range stage.Kinds() {
		out[kind] = For(kind, snap, hasResult)
	}
	return out
}
