// Package mlsvc is the HTTP client for the ML backend service.
//
// # Overview
//
// The ML service owns the actual data science: it parses uploaded
// datasets, holds them in server-side sessions, trains models, and scores
// new rows. This package wraps its four endpoints behind typed calls and
// classified errors so the rest of the builder never touches HTTP:
//
//   - Health: GET /api/health liveness probe
//   - UploadDataset: POST /api/upload (multipart), returns a dataset handle
//   - Train: POST /api/train, returns the full result payload
//   - Predict: POST /api/predict, scores rows against the trained model
//
// Client satisfies training.Backend, so the orchestrator can be handed a
// real service in production and a fake in tests.
//
// # Error Classification
//
// The service reports failures as {"error": message} with no machine
// codes, so the client maps known messages onto sentinel errors:
//
//   - "Invalid session ID" becomes errors.ErrSessionExpired
//   - "No trained model found..." becomes errors.ErrNoResult
//   - other training errors become errors.ErrTrainingFailed, message intact
//   - transport failures and 5xx become errors.ErrServiceUnavailable
//
// # Retry Policy
//
// Uploads are retried with exponential backoff on transient failures; a
// fresh session is minted on success so duplicates are harmless. Training
// is dispatched exactly once and never retried: the service trains as a
// side effect, and a blind resend could run the same training twice.
package mlsvc
