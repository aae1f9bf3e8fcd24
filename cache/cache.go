package cache

import (
	"context"
	"errors"
)

// Common errors returned by cache operations.
var (
	// ErrNotFound is returned by Get when no entry exists for a key.
	// A miss is a normal outcome, not a failure; callers are expected to
	// check for it with errors.Is and fall through to the provider.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("cache: invalid key")
)

// Store is a content-addressed key-value store for completed model calls.
//
// Keys are deterministic digests of canonicalized requests (see llm.CacheKey),
// values are opaque serialized responses. The store is shared across every
// concurrent trial in the process; implementations must tolerate concurrent
// reads and writes. Concurrent writes to the same key resolve to
// last-write-wins, which is acceptable because identical keys always carry
// semantically identical values.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous entry.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the entry for key.
	// Returns true if an entry existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
