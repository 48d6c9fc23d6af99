package regioncache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/unkn0wn-root/regioncache/internal/util"
	st "github.com/unkn0wn-root/regioncache/store"
)

// ensureAttempts bounds the SETNX/GET bootstrap race against an external
// flush happening between the two calls.
const ensureAttempts = 3

// namespace derives every physical key for one region and owns the
// authoritative generation counter stored beside the items. It holds no
// state of its own; the store is the single source of truth.
type namespace struct {
	region string
	st     st.Store
}

func (n namespace) genKey() string      { return "gen:" + n.region }
func (n namespace) registryKey() string { return "reg:" + n.region }

// itemKey embeds the generation as its own numeric segment, so two
// generations of the same region can never collide regardless of id content.
func (n namespace) itemKey(gen uint64, id string) string {
	return "item:" + n.region + ":" + strconv.FormatUint(gen, 10) + ":" + util.CompactID(id)
}

// lockKey carries no generation: lock identity must be stable across Clear.
func (n namespace) lockKey(id string) string {
	return "lock:" + n.region + ":" + util.CompactID(id)
}

// ensure bootstraps the generation counter to 1 when absent and returns the
// present value. Safe under concurrent first-use by many clients: exactly
// one SETNX wins and every caller converges on the same value.
func (n namespace) ensure(ctx context.Context) (uint64, error) {
	for i := 0; i < ensureAttempts; i++ {
		created, err := n.st.SetNX(ctx, n.genKey(), []byte("1"), 0)
		if err != nil {
			return 0, err
		}
		if created {
			return 1, nil
		}
		raw, ok, err := n.st.Get(ctx, n.genKey())
		if err != nil {
			return 0, err
		}
		if !ok {
			// counter vanished between SETNX and GET (external flush); retry
			continue
		}
		return parseGeneration(raw)
	}
	return 0, fmt.Errorf("regioncache: generation for %q keeps disappearing", n.region)
}

// current reads the authoritative generation; an absent counter behaves as
// first use and bootstraps via ensure.
func (n namespace) current(ctx context.Context) (uint64, error) {
	raw, ok, err := n.st.Get(ctx, n.genKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return n.ensure(ctx)
	}
	return parseGeneration(raw)
}

// advance atomically increments the generation by 1 and returns the new
// value; used exactly once per Clear. An absent counter is created at 1,
// which is a fresh epoch either way.
func (n namespace) advance(ctx context.Context) (uint64, error) {
	v, err := n.st.IncrBy(ctx, n.genKey(), 1)
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func parseGeneration(raw []byte) (uint64, error) {
	g, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("regioncache: generation parse: %w", err)
	}
	if g == 0 {
		return 0, fmt.Errorf("regioncache: generation must be positive, got 0")
	}
	return g, nil
}
