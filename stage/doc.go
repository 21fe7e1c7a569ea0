// Package stage defines the closed set of pipeline stage kinds and the
// catalog registry that describes them.
//
// The builder works with exactly six stages in a fixed canonical order:
//
//	dataset → preprocess → feature → split → model → results
//
// Kind is the wire-level identifier for a stage; ParseKind rejects anything
// outside the closed set. Registry maps each kind to a Descriptor carrying
// its display label, description, and auto-arrange slot. DefaultRegistry
// returns the built-in catalog used by the session and the HTTP facade.
package stage
