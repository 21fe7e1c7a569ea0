// Package errors provides standardized error handling patterns for NeuroBlock.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing). On top of the classes it defines
// the builder's error taxonomy as sentinel values so callers can branch with
// errors.Is instead of string matching:
//
//   - ErrDuplicateStage: a stage kind was placed twice on the canvas
//   - ErrNotReady: training prerequisites are missing
//   - ErrSessionExpired: the backend no longer accepts the dataset session
//   - ErrServiceUnavailable: the ML backend failed its health probe
//   - ErrAlreadyInProgress: a training run is already in flight
//   - ErrTrainingFailed: the backend rejected or aborted the run
//   - ErrImportRejected: a pipeline document failed import validation
//
// Field-level rejections use ValidationError, which names the offending
// field in its wire spelling so the message can be returned to API callers
// unchanged.
//
// # Error Wrapping
//
// Helper functions wrap errors with component and operation context in the
// form "component.method: action failed: <cause>":
//
//	if err := layout.Place(kind, pos); err != nil {
//	    return errors.Wrap(err, "Session", "PlaceStage", "place stage")
//	}
//
// WrapTransient, WrapInvalid, and WrapFatal additionally attach a class so
// downstream handlers can decide between retry, reject, and abort.
package errors
