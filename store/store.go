// Package store defines the remote store abstraction used by regioncache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
//
// Important: the keyspaces "gen:", "reg:", "item:" and "lock:" are owned by
// regioncache. External code MUST NOT write values under these prefixes.
// Foreign writes may be treated as corruption by strict wire-format
// validation and deleted.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs plus the two atomic primitives the
// generation and locking protocols rely on: conditional create (SetNX) and a
// counter increment (IncrBy). Must be safe for concurrent use across
// goroutines; a shared backend (Redis) extends the atomicity guarantees
// across processes.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL, overwriting any previous value.
	// ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only when the key is absent. Atomic: under
	// concurrent callers exactly one observes created=true.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (created bool, err error)

	// Del removes a key; deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// IncrBy atomically adds delta to the integer stored at key and returns
	// the new value. An absent key is created at delta. The stored
	// representation is the decimal string of the counter.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// TTL reports the remaining time-to-live. ok is false when the key is
	// absent or carries no expiry.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Close releases resources.
	Close(ctx context.Context) error
}
