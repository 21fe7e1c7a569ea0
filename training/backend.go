package training

import "context"

// Backend is the external ML service as the orchestrator sees it: a health
// probe and a single training call. The HTTP client in package mlsvc is the
// production implementation; tests substitute fakes.
type Backend interface {
	// Health probes the service. A non-nil error means training must not
	// be dispatched.
	Health(ctx context.Context) error

	// Train submits one training request and blocks until the service
	// responds. Implementations must not retry: training is expensive and
	// not assumed idempotent.
	Train(ctx context.Context, req Request) (*Result, error)
}
