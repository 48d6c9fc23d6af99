package regioncache

import "context"

// withGeneration is the synchronizer retry loop around every item operation.
//
// It runs op under the client-local generation, then re-reads the
// authoritative counter. If the counter still matches, the operation is
// done. If another client advanced it mid-flight, the new value is adopted
// and op runs again; the counter is monotone, so every retry observes a
// value at least as large as the last, and concurrent advances are
// rate-limited by real Clear calls - in practice the loop runs at most once
// extra per racing Clear. The attempt bound exists only to rule out livelock
// under a pathological clear-storm.
//
// The one sanctioned non-monotone transition is an external flush: the
// counter vanished and was re-bootstrapped, so the adopted value may be
// smaller than the local one.
func (r *region[V]) withGeneration(ctx context.Context, op func(gen uint64) error) error {
	g, err := r.localGeneration(ctx)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < r.maxSyncRetries; attempt++ {
		if err := op(g); err != nil {
			return err
		}
		cur, err := r.ns.current(ctx)
		if err != nil {
			return err
		}
		if cur == g {
			return nil
		}
		if cur < g {
			r.hooks.GenerationReset(r.name, g, cur)
			r.log.Warn("generation rewound (external reset)", Fields{"region": r.name, "from": g, "to": cur})
		} else {
			r.hooks.GenerationRetry(r.name, g, cur)
			r.log.Debug("generation advanced mid-operation; retrying", Fields{"region": r.name, "from": g, "to": cur})
		}
		g = cur
		r.setLocalGeneration(g)
	}
	return errSyncExhausted
}

// localGeneration returns the last generation this instance observed,
// bootstrapping from the store on first use. 0 means "never observed" and is
// not a valid generation.
func (r *region[V]) localGeneration(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	g := r.gen
	r.mu.Unlock()
	if g != 0 {
		return g, nil
	}
	g, err := r.ns.ensure(ctx)
	if err != nil {
		return 0, err
	}
	r.setLocalGeneration(g)
	return g, nil
}

func (r *region[V]) setLocalGeneration(g uint64) {
	r.mu.Lock()
	r.gen = g
	r.mu.Unlock()
}
