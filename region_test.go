package regioncache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	c "github.com/unkn0wn-root/regioncache/codec"
	"github.com/unkn0wn-root/regioncache/internal/wire"
	st "github.com/unkn0wn-root/regioncache/store"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memStore is an in-memory store.Store with real TTL expiry and atomic
// SetNX/IncrBy under one mutex. failWith simulates the store being
// unreachable; onSet is an interposition point for race tests.
type memStore struct {
	mu       sync.Mutex
	m        map[string]memEntry
	failWith error
	onSet    func(key string) // called without the mutex held, before the write
}

var _ st.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{m: make(map[string]memEntry)} }

func (p *memStore) live(key string) ([]byte, bool) {
	e, ok := p.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false
	}
	return e.v, true
}

func (p *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return nil, false, p.failWith
	}
	v, ok := p.live(key)
	return v, ok, nil
}

func (p *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if p.onSet != nil {
		p.onSet(key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return nil
}

func (p *memStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return false, p.failWith
	}
	if _, ok := p.live(key); ok {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memStore) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	delete(p.m, key)
	return nil
}

func (p *memStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return 0, p.failWith
	}
	var cur int64
	if v, ok := p.live(key); ok {
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}
	cur += delta
	e := p.m[key]
	e.v = strconv.AppendInt(nil, cur, 10)
	p.m[key] = e
	return cur, nil
}

func (p *memStore) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return 0, false, p.failWith
	}
	e, ok := p.m[key]
	if !ok || e.exp.IsZero() {
		return 0, false, nil
	}
	d := time.Until(e.exp)
	if d <= 0 {
		delete(p.m, key)
		return 0, false, nil
	}
	return d, true, nil
}

func (p *memStore) Close(_ context.Context) error { return nil }

// has reports whether the raw physical key is still present (TTL ignored).
func (p *memStore) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

func (p *memStore) wipe() {
	p.mu.Lock()
	p.m = make(map[string]memEntry)
	p.mu.Unlock()
}

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func newTestRegion(t *testing.T, name string, ms st.Store, optsOpt func(*Options[user])) Region[user] {
	t.Helper()
	opts := Options[user]{
		Region: name,
		Store:  ms,
		Codec:  c.JSON[user]{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	r, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func mustImpl[V any](t *testing.T, r Region[V]) *region[V] {
	t.Helper()
	impl, ok := r.(*region[V])
	if !ok {
		t.Fatalf("unexpected concrete type for Region")
	}
	return impl
}

// recordingHooks counts hook events for assertions.
type recordingHooks struct {
	mu         sync.Mutex
	suppressed map[string]int // by op
	selfHeals  map[string]int // by reason
	retries    int
	resets     int
	timeouts   int
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{suppressed: make(map[string]int), selfHeals: make(map[string]int)}
}

func (h *recordingHooks) StoreUnavailable(op, _ string, _ error) {
	h.mu.Lock()
	h.suppressed[op]++
	h.mu.Unlock()
}
func (h *recordingHooks) SelfHealItem(_, reason string) {
	h.mu.Lock()
	h.selfHeals[reason]++
	h.mu.Unlock()
}
func (h *recordingHooks) GenerationRetry(string, uint64, uint64) {
	h.mu.Lock()
	h.retries++
	h.mu.Unlock()
}
func (h *recordingHooks) GenerationReset(string, uint64, uint64) {
	h.mu.Lock()
	h.resets++
	h.mu.Unlock()
}
func (h *recordingHooks) LockAcquireTimeout(string, string) {
	h.mu.Lock()
	h.timeouts++
	h.mu.Unlock()
}
func (h *recordingHooks) ClearOutage(string, error, error) {}

// ==============================
// Region surface
// ==============================

func TestNewValidatesOptions(t *testing.T) {
	ms := newMemStore()
	if _, err := New[user](Options[user]{Store: ms, Codec: c.JSON[user]{}}); err == nil {
		t.Fatalf("expected error for missing region name")
	}
	if _, err := New[user](Options[user]{Region: "r", Codec: c.JSON[user]{}}); err == nil {
		t.Fatalf("expected error for missing store")
	}
	if _, err := New[user](Options[user]{Region: "r", Store: ms}); err == nil {
		t.Fatalf("expected error for missing codec")
	}
}

func TestFirstUseGenerationIsOne(t *testing.T) {
	ctx := context.Background()
	r := newTestRegion(t, "r", newMemStore(), nil)

	g, err := r.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if g != 1 {
		t.Fatalf("first-use generation = %d, want 1", g)
	}
}

func TestPutGetRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRegion(t, "r", newMemStore(), nil)

	v := user{Name: "Ada", Age: 36}
	if _, ok, err := r.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if err := r.Put(ctx, "u1", v); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := r.Get(ctx, "u1")
	if err != nil || !ok || got != v {
		t.Fatalf("Get after Put: ok=%v err=%v got=%v", ok, err, got)
	}
	if err := r.Remove(ctx, "u1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, err := r.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("Get after Remove should miss: ok=%v err=%v", ok, err)
	}
}

func TestClearAdvancesGenerationAndHidesItems(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	r := newTestRegion(t, "r", ms, nil)
	impl := mustImpl(t, r)

	ids := []string{"a", "b", "c"}
	for i, id := range ids {
		if err := r.Put(ctx, id, user{Name: id, Age: i}); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	if err := r.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	g, err := r.Generation(ctx)
	if err != nil || g != 2 {
		t.Fatalf("Generation after Clear = %d (err=%v), want 2", g, err)
	}
	for _, id := range ids {
		if _, ok, err := r.Get(ctx, id); err != nil || ok {
			t.Fatalf("Get %s after Clear should miss: ok=%v err=%v", id, ok, err)
		}
	}

	// old physical keys still exist until their TTL elapses; they are merely
	// unreachable under the new generation
	for _, id := range ids {
		if !ms.has(impl.ns.itemKey(1, id)) {
			t.Fatalf("pre-clear key for %s should still physically exist", id)
		}
	}
	if ms.has(impl.ns.registryKey()) {
		t.Fatalf("registry key should be deleted by Clear")
	}
}

func TestClearIsObservedByOtherClients(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	a := newTestRegion(t, "r", ms, nil)
	b := newTestRegion(t, "r", ms, nil)

	if err := a.Put(ctx, "k", user{Name: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); !ok {
		t.Fatalf("b should see a's write")
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	// a's local generation is stale; the synchronizer must catch up
	if _, ok, err := a.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("a should observe b's clear: ok=%v err=%v", ok, err)
	}
	if err := a.Put(ctx, "k", user{Name: "y"}); err != nil {
		t.Fatalf("Put after clear: %v", err)
	}
	if got, ok, _ := b.Get(ctx, "k"); !ok || got.Name != "y" {
		t.Fatalf("b should see post-clear write: ok=%v got=%v", ok, got)
	}
}

func TestExternalGenerationBumpIsAdopted(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	hooks := newRecordingHooks()
	r := newTestRegion(t, "r", ms, func(o *Options[user]) { o.Hooks = hooks })
	impl := mustImpl(t, r)

	if err := r.Put(ctx, "k", user{Name: "v1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// another actor advances the counter by 5 behind this client's back
	if _, err := ms.IncrBy(ctx, impl.ns.genKey(), 5); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}

	if err := r.Put(ctx, "k", user{Name: "v2"}); err != nil {
		t.Fatalf("Put after bump: %v", err)
	}
	if g, _ := r.Generation(ctx); g != 6 {
		t.Fatalf("Generation = %d, want 6", g)
	}
	got, ok, err := r.Get(ctx, "k")
	if err != nil || !ok || got.Name != "v2" {
		t.Fatalf("Get under new generation: ok=%v err=%v got=%v", ok, err, got)
	}
	hooks.mu.Lock()
	retries := hooks.retries
	hooks.mu.Unlock()
	if retries == 0 {
		t.Fatalf("expected at least one generation retry")
	}
}

func TestRegionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	r1 := newTestRegion(t, "orders", ms, nil)
	r2 := newTestRegion(t, "users", ms, nil)

	if err := r1.Put(ctx, "1", user{Name: "order"}); err != nil {
		t.Fatalf("Put r1: %v", err)
	}
	if _, ok, _ := r2.Get(ctx, "1"); ok {
		t.Fatalf("regions must not observe each other's items")
	}
	if err := r2.Clear(ctx); err != nil {
		t.Fatalf("Clear r2: %v", err)
	}
	if got, ok, _ := r1.Get(ctx, "1"); !ok || got.Name != "order" {
		t.Fatalf("clearing one region must not affect another: ok=%v got=%v", ok, got)
	}
}

func TestStoreOutageIsSwallowed(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.failWith = errors.New("connection refused")
	hooks := newRecordingHooks()
	r := newTestRegion(t, "r", ms, func(o *Options[user]) { o.Hooks = hooks })

	if err := r.Put(ctx, "k", user{Name: "x"}); err != nil {
		t.Fatalf("Put must not surface store errors: %v", err)
	}
	if _, ok, err := r.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get must report a plain miss: ok=%v err=%v", ok, err)
	}
	if err := r.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove must not surface store errors: %v", err)
	}
	if err := r.Clear(ctx); err != nil {
		t.Fatalf("Clear must not surface store errors: %v", err)
	}
	if err := r.Lock(ctx, "k"); err != nil {
		t.Fatalf("Lock must not surface store errors: %v", err)
	}
	if err := r.Unlock(ctx, "k"); err != nil {
		t.Fatalf("Unlock must not surface store errors: %v", err)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	for _, op := range []string{"put", "get", "remove", "clear", "lock"} {
		if hooks.suppressed[op] == 0 {
			t.Fatalf("suppressed %s not reported through hooks", op)
		}
	}
}

func TestItemTTLWindow(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	r := newTestRegion(t, "r", ms, func(o *Options[user]) { o.DefaultTTL = 5 * time.Minute })
	impl := mustImpl(t, r)

	if err := r.Put(ctx, "999", user{Name: "Foo", Age: 10}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	d, ok, err := ms.TTL(ctx, impl.ns.itemKey(1, "999"))
	if err != nil || !ok {
		t.Fatalf("TTL: ok=%v err=%v", ok, err)
	}
	if d <= 4*time.Minute || d > 5*time.Minute {
		t.Fatalf("remaining TTL = %v, want (4m, 5m]", d)
	}
	got, ok, err := r.Get(ctx, "999")
	if err != nil || !ok || (got != user{Name: "Foo", Age: 10}) {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}
}

func TestCorruptFrameSelfHeals(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	hooks := newRecordingHooks()
	r := newTestRegion(t, "r", ms, func(o *Options[user]) { o.Hooks = hooks })
	impl := mustImpl(t, r)

	if _, err := r.Generation(ctx); err != nil {
		t.Fatalf("Generation: %v", err)
	}
	k := impl.ns.itemKey(1, "k")
	if err := ms.Set(ctx, k, []byte("foreign write"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := r.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("corrupt entry must read as a plain miss: ok=%v err=%v", ok, err)
	}
	if ms.has(k) {
		t.Fatalf("corrupt entry should have been deleted")
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.selfHeals["corrupt"] != 1 {
		t.Fatalf("self-heal not reported, got %v", hooks.selfHeals)
	}
}

func TestUndecodablePayloadSurfacesDecodeError(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	r := newTestRegion(t, "r", ms, nil)
	impl := mustImpl(t, r)

	if _, err := r.Generation(ctx); err != nil {
		t.Fatalf("Generation: %v", err)
	}
	k := impl.ns.itemKey(1, "k")
	// valid frame, payload that is not JSON
	if err := ms.Set(ctx, k, wire.Encode([]byte("{not json")), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	_, ok, err := r.Get(ctx, "k")
	if ok {
		t.Fatalf("undecodable payload must not report a hit")
	}
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if derr.Region != "r" || derr.ID != "k" {
		t.Fatalf("DecodeError fields: %+v", derr)
	}
	if ms.has(k) {
		t.Fatalf("undecodable entry should have been deleted")
	}
	// subsequent reads are plain misses
	if _, ok, err := r.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("post-heal read: ok=%v err=%v", ok, err)
	}
}

func TestDisabledRegionIsInert(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.failWith = errors.New("must never be called")
	r := newTestRegion(t, "r", ms, func(o *Options[user]) { o.Disabled = true })

	if r.Enabled() {
		t.Fatalf("region should report disabled")
	}
	if err := r.Put(ctx, "k", user{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, err := r.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if err := r.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := r.Lock(ctx, "k"); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := r.Unlock(ctx, "k"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestCloseDoesNotTouchRegionData(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	a := newTestRegion(t, "r", ms, nil)
	b := newTestRegion(t, "r", ms, nil)

	if err := a.Put(ctx, "k", user{Name: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if g, err := b.Generation(ctx); err != nil || g != 1 {
		t.Fatalf("Close must not alter the generation: g=%d err=%v", g, err)
	}
	if got, ok, _ := b.Get(ctx, "k"); !ok || got.Name != "x" {
		t.Fatalf("Close must not alter region contents: ok=%v got=%v", ok, got)
	}
}
