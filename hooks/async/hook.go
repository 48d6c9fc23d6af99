// usage:
//
// import (
//
//	"github.com/unkn0wn-root/regioncache"
//	"github.com/unkn0wn-root/regioncache/codec"
//	asynchook "github.com/unkn0wn-root/regioncache/hooks/async"
//	promhook "github.com/unkn0wn-root/regioncache/hooks/prom"
//
// )
//
// raw := promhook.New(prometheus.DefaultRegisterer)
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	region, _ := regioncache.New[User](regioncache.Options[User]{
//	    Region: "user",
//	    Store:  store,
//	    Codec:  codec.JSON[User]{},
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/regioncache"
)

type Hooks struct {
	inner regioncache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ regioncache.Hooks = (*Hooks)(nil)

func New(inner regioncache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHealItem(k, r string) { h.try(func() { h.inner.SelfHealItem(k, r) }) }
func (h *Hooks) LockAcquireTimeout(reg, id string) {
	h.try(func() { h.inner.LockAcquireTimeout(reg, id) })
}
func (h *Hooks) StoreUnavailable(op, id string, err error) {
	h.try(func() { h.inner.StoreUnavailable(op, id, err) })
}
func (h *Hooks) GenerationRetry(reg string, from, to uint64) {
	h.try(func() { h.inner.GenerationRetry(reg, from, to) })
}
func (h *Hooks) GenerationReset(reg string, from, to uint64) {
	h.try(func() { h.inner.GenerationReset(reg, from, to) })
}
func (h *Hooks) ClearOutage(reg string, ae, de error) {
	h.try(func() { h.inner.ClearOutage(reg, ae, de) })
}
