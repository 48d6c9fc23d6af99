package regioncache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/regioncache/codec"
	st "github.com/unkn0wn-root/regioncache/store"
)

type Cache[V any] = Region[V] // just an alias -> regioncache.Cache[User] or regioncache.Region[User]

// Region is the public surface of one named cache region. All methods are
// safe for concurrent use; multiple Region instances (in one process or many)
// may operate on the same region name against the same store.
//
// Store unavailability never surfaces as an error: Put/Remove/Lock/Unlock
// return nil and Get reports a miss. The exceptions are serialization
// failures (Put returns the encode error, Get returns a *DecodeError) and a
// lock wait budget running out (Lock returns ErrLockNotAcquired).
type Region[V any] interface {
	Enabled() bool
	Close(context.Context) error

	Put(ctx context.Context, id string, value V) error
	Get(ctx context.Context, id string) (v V, ok bool, err error)
	Remove(ctx context.Context, id string) error

	// Clear advances the region's generation by one and drops the region
	// marker. Existing entries are not deleted; they become unreachable under
	// the new generation and expire via their original TTL. O(1) regardless
	// of region size.
	Clear(ctx context.Context) error

	// Lock blocks until the distributed lock for id is held, the wait budget
	// runs out (ErrLockNotAcquired), or ctx is done. Unlock releases a lock
	// this instance holds; unlocking an id it does not hold is a no-op.
	Lock(ctx context.Context, id string) error
	Unlock(ctx context.Context, id string) error

	// Generation reads the authoritative generation counter, bootstrapping it
	// to 1 on first use of the region by any client.
	Generation(ctx context.Context) (uint64, error)
}

// Options tune the behavior of a Region.
// Only Region, Store and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Region string // region name, unique within a store. e.g. "user", "order"
	Store  st.Store
	Codec  c.Codec[V]

	Logger     Logger        // if nil, NopLogger is used
	Hooks      Hooks         // if nil, NopHooks is used
	DefaultTTL time.Duration // item expiration; 0 => 10m

	LockLease   time.Duration // lock lease TTL; 0 => 30s
	LockWait    time.Duration // acquire budget; 0 => 10s; <0 => wait until ctx is done
	LockBackoff time.Duration // retry interval while contended; 0 => 50ms

	MaxSyncRetries int  // generation re-sync attempts per op; 0 => 8
	Disabled       bool // default false (enabled)
}

func New[V any](opts Options[V]) (Region[V], error) {
	return newRegion[V](opts)
}
