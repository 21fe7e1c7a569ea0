// Package pipeline holds the typed configuration model for a NeuroBlock
// pipeline: per-stage configs (preprocess, feature engineering, split,
// model), the closed hyperparameter schemas for each supported algorithm,
// and the dataset handle returned by the ML backend on upload.
//
// The Store is the single mutable home for all of it. Every setter merges
// a partial patch into a copy, validates the merged value, and swaps it in
// only on success, so a rejected update can never leave a half-applied
// config behind. Readers take a Snapshot (a consistent deep copy), and
// every downstream computation (stage status, suggestions, the train
// gate, request assembly) is a pure function of that snapshot.
package pipeline
