// Package training orchestrates runs against the external ML service.
//
// The Orchestrator owns the run lifecycle: it validates the training gate
// (dataset, feature/target selection, model choice), probes service
// health, assembles the wire request from a pipeline snapshot, and
// dispatches it exactly once. Concurrent runs are rejected, and there is
// no implicit retry because training is expensive and not assumed
// idempotent. Run progress moves through idle → validating →
// health_checking → dispatched → succeeded/failed; there is no cancelled
// state, since a dispatched run can only end one of two ways.
//
// The Backend interface abstracts the service so the orchestrator can be
// exercised against fakes; package mlsvc provides the HTTP implementation.
package training
