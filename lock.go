package regioncache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/regioncache/internal/util"
	st "github.com/unkn0wn-root/regioncache/store"
)

// regionLock is the per-(region,id) mutual-exclusion primitive shared by
// unrelated client processes. A lock entry is a SETNX'd key holding an opaque
// holder token with a lease TTL; the TTL frees the lock when a holder crashes
// mid-critical-section, so lease must exceed the expected section duration
// with margin.
type regionLock struct {
	ns namespace
	st st.Store

	lease   time.Duration
	wait    time.Duration // acquire budget; <0 means no deadline
	backoff time.Duration
}

// acquire spins on SETNX until the lock is held, the wait budget elapses
// (ErrLockNotAcquired), or ctx is done. A zero wait makes it a try-lock.
// Returns the holder token needed to release.
func (l *regionLock) acquire(ctx context.Context, id string) (string, error) {
	token := util.Token()
	key := l.ns.lockKey(id)

	var deadline time.Time
	if l.wait >= 0 {
		deadline = time.Now().Add(l.wait)
	}
	for {
		created, err := l.st.SetNX(ctx, key, []byte(token), l.lease)
		if err != nil {
			return "", err
		}
		if created {
			return token, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return "", ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

// release deletes the lock entry only when the stored token still matches:
// after a lease expiry the key may belong to the next holder, and deleting it
// would hand the lock to a third party. A release by a non-holder is a no-op.
//
// The store exposes no compare-and-delete, so this is read-compare-delete.
// The window between the two calls can only delete a lock whose lease expired
// after the read; the next holder's own lease bounds the damage.
func (l *regionLock) release(ctx context.Context, id, token string) error {
	key := l.ns.lockKey(id)
	raw, ok, err := l.st.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || string(raw) != token {
		return nil
	}
	return l.st.Del(ctx, key)
}
