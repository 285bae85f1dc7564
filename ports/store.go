package ports

import (
	"context"
	"time"
)

// Store is a key/value store for per-session challenge slots
type Store interface {
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value stored under key or core.ErrChallengeNotFound
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Consume runs match against the stored value and, if it returns true,
	// deletes the key. The check and the delete happen as one operation.
	// It reports whether the key was deleted. A missing key yields false.
	Consume(ctx context.Context, key string, match func(stored string) bool) (bool, error)
}
