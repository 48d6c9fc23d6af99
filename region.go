package regioncache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdc "github.com/unkn0wn-root/regioncache/codec"
	"github.com/unkn0wn-root/regioncache/internal/wire"
	st "github.com/unkn0wn-root/regioncache/store"
)

type region[V any] struct {
	name  string
	st    st.Store
	codec cdc.Codec[V]
	log   Logger
	hooks Hooks

	enabled        bool
	ttl            time.Duration
	maxSyncRetries int

	ns   namespace
	lock *regionLock

	mu   sync.Mutex
	gen  uint64            // client-local generation; 0 = never observed
	held map[string]string // lock tokens by id, this instance's acquisitions
}

func newRegion[V any](opts Options[V]) (*region[V], error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("regioncache: region name is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("regioncache: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("regioncache: codec is required")
	}

	r := &region[V]{
		name:    opts.Region,
		st:      opts.Store,
		codec:   opts.Codec,
		enabled: !opts.Disabled,
		held:    make(map[string]string),
	}

	// defaults
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	r.ttl = coalesce[time.Duration](opts.DefaultTTL, 10*time.Minute)
	r.maxSyncRetries = coalesce[int](opts.MaxSyncRetries, 8)

	r.ns = namespace{region: opts.Region, st: opts.Store}
	r.lock = &regionLock{
		ns:      r.ns,
		st:      opts.Store,
		lease:   coalesce[time.Duration](opts.LockLease, 30*time.Second),
		wait:    coalesce[time.Duration](opts.LockWait, 10*time.Second),
		backoff: coalesce[time.Duration](opts.LockBackoff, 50*time.Millisecond),
	}
	return r, nil
}

func (r *region[V]) Enabled() bool { return r.enabled }

// Close releases local resources only: forgotten lock tokens and the local
// generation. It never mutates the region's contents or counter; held lock
// entries simply run out their lease.
func (r *region[V]) Close(ctx context.Context) error {
	r.mu.Lock()
	r.held = make(map[string]string)
	r.gen = 0
	r.mu.Unlock()
	if r.st != nil {
		return r.st.Close(ctx)
	}
	return nil
}

func (r *region[V]) Put(ctx context.Context, id string, value V) error {
	if !r.enabled {
		return nil
	}
	payload, err := r.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("regioncache: encode %q in region %q: %w", id, r.name, err)
	}
	framed := wire.Encode(payload)

	err = r.withGeneration(ctx, func(gen uint64) error {
		k := r.ns.itemKey(gen, id)
		if err := r.st.Set(ctx, k, framed, r.ttl); err != nil {
			return err
		}
		// coarse "region has items" marker; cleared on Clear, never read back
		_, err := r.st.SetNX(ctx, r.ns.registryKey(), []byte(r.name), 0)
		return err
	})
	if err != nil {
		r.suppress("put", id, err)
	}
	return nil
}

func (r *region[V]) Get(ctx context.Context, id string) (V, bool, error) {
	var zero V
	if !r.enabled {
		return zero, false, nil
	}

	var (
		val    V
		found  bool
		decErr error
	)
	err := r.withGeneration(ctx, func(gen uint64) error {
		found, decErr = false, nil
		k := r.ns.itemKey(gen, id)
		raw, ok, err := r.st.Get(ctx, k)
		if err != nil || !ok {
			return err
		}
		payload, werr := wire.Decode(raw)
		if werr != nil {
			_ = r.st.Del(ctx, k) // self-heal corrupt
			r.hooks.SelfHealItem(k, "corrupt")
			return nil
		}
		v, cerr := r.codec.Decode(payload)
		if cerr != nil {
			_ = r.st.Del(ctx, k) // self-heal; the bytes stay undecodable forever
			r.hooks.SelfHealItem(k, "value_decode")
			decErr = &DecodeError{Region: r.name, ID: id, Err: cerr}
			return nil
		}
		val, found = v, true
		return nil
	})
	if err != nil {
		r.suppress("get", id, err)
		return zero, false, nil
	}
	if decErr != nil {
		return zero, false, decErr
	}
	return val, found, nil
}

func (r *region[V]) Remove(ctx context.Context, id string) error {
	if !r.enabled {
		return nil
	}
	err := r.withGeneration(ctx, func(gen uint64) error {
		return r.st.Del(ctx, r.ns.itemKey(gen, id))
	})
	if err != nil {
		r.suppress("remove", id, err)
	}
	return nil
}

// Clear is the generation-changing operation, so it does not run inside the
// synchronizer: one atomic advance plus a registry delete, O(1) regardless
// of region size. Orphaned items expire via their original TTL.
func (r *region[V]) Clear(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	next, advErr := r.ns.advance(ctx)
	if advErr == nil {
		r.setLocalGeneration(next)
	}
	delErr := r.st.Del(ctx, r.ns.registryKey())

	if advErr != nil || delErr != nil {
		cerr := &ClearError{Region: r.name, AdvanceErr: advErr, DelErr: delErr}
		if advErr != nil && delErr != nil {
			r.hooks.ClearOutage(r.name, advErr, delErr)
		}
		r.suppress("clear", "", cerr)
		return nil
	}
	r.log.Debug("region cleared", Fields{"region": r.name, "generation": next})
	return nil
}

func (r *region[V]) Lock(ctx context.Context, id string) error {
	if !r.enabled {
		return nil
	}
	token, err := r.lock.acquire(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			r.hooks.LockAcquireTimeout(r.name, id)
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		r.suppress("lock", id, err)
		return nil
	}
	r.mu.Lock()
	r.held[id] = token
	r.mu.Unlock()
	return nil
}

func (r *region[V]) Unlock(ctx context.Context, id string) error {
	if !r.enabled {
		return nil
	}
	r.mu.Lock()
	token, ok := r.held[id]
	delete(r.held, id)
	r.mu.Unlock()
	if !ok {
		return nil // not a holder
	}
	if err := r.lock.release(ctx, id, token); err != nil {
		r.suppress("unlock", id, err)
	}
	return nil
}

func (r *region[V]) Generation(ctx context.Context) (uint64, error) {
	g, err := r.ns.current(ctx)
	if err != nil {
		return 0, err
	}
	r.setLocalGeneration(g)
	return g, nil
}

// suppress is the best-effort boundary: the store being unreachable (or the
// sync loop giving up) must never fail the surrounding system, so the error
// stops here - visibly, through the hook and the log.
func (r *region[V]) suppress(op, id string, err error) {
	r.hooks.StoreUnavailable(op, id, err)
	r.log.Warn("store operation absorbed", Fields{"op": op, "region": r.name, "id": id, "err": err})
}
