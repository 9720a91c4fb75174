package embeddings

import "errors"

var (
	// ErrConfiguration indicates missing or invalid configuration, a duplicate
	// registration, or a usage error such as a non-text query. Never retried.
	ErrConfiguration = errors.New("embedding configuration error")

	// ErrNotRegistered is returned when no factory exists under a name
	ErrNotRegistered = errors.New("embedding function not registered")

	// ErrProvider indicates that the remote embedding call failed or returned
	// an unusable response
	ErrProvider = errors.New("embedding provider error")

	// ErrPipeline indicates a contract violation between a provider and the
	// table pipeline, e.g. a vector count or length mismatch
	ErrPipeline = errors.New("embedding pipeline error")
)
