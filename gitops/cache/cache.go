// Package cache defines the byte-oriented cache used
// to memoize platform API results, with an in-process
// implementation and a Redis-backed one for deployments
// that share state across replicas.
package cache

import (
	"context"
	"time"
)

// NoTTL marks an entry that never expires on its own.
// Such entries only leave the cache through explicit
// invalidation.
const NoTTL time.Duration = 0

// Cache stores opaque byte values under string keys.
//
// Pattern: Strategy -- callers pick the backing store
// at wiring time.
type Cache interface {
	// Get returns the value under key. The second
	// return is false when the key is absent or
	// expired.
	Get(
		ctx context.Context,
		key string,
	) ([]byte, bool, error)

	// Set stores value under key. A ttl of NoTTL
	// keeps the entry until it is invalidated.
	// Concurrent writers race benignly: the last
	// write wins.
	Set(
		ctx context.Context,
		key string,
		value []byte,
		ttl time.Duration,
	) error

	// Invalidate removes the entry under key. It is
	// a no-op for absent keys.
	Invalidate(ctx context.Context, key string) error

	// InvalidatePrefix removes every entry whose key
	// starts with prefix.
	InvalidatePrefix(
		ctx context.Context,
		prefix string,
	) error
}
