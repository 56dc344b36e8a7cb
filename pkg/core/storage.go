package core

import "context"

// Storage defines the key-value backend persisted subtrees are written to.
// Adhering to this interface keeps the core independent of the underlying
// storage engine (memory, filesystem, SQLite, S3, ...).
type Storage interface {
	// Get returns the stored value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Ready blocks until the backend can serve reads and writes, or ctx ends.
	// A backend that is always ready returns nil immediately.
	Ready(ctx context.Context) error
}
