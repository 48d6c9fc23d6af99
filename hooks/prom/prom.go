// Package promhook exposes regioncache hook events as Prometheus counters.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/regioncache"
)

type Hooks struct {
	storeUnavailable *prometheus.CounterVec
	selfHeal         *prometheus.CounterVec
	genRetries       prometheus.Counter
	genResets        prometheus.Counter
	lockTimeouts     prometheus.Counter
	clearOutages     prometheus.Counter
}

var _ regioncache.Hooks = (*Hooks)(nil)

// New registers the regioncache counters with reg and returns the hook sink.
// Pass prometheus.DefaultRegisterer for the usual global registry. Call once
// per registry; Prometheus panics on duplicate registration.
func New(reg prometheus.Registerer) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		storeUnavailable: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regioncache_store_unavailable_total",
				Help: "Operations absorbed as miss/no-op because the store was unreachable",
			},
			[]string{"op"}, // "put", "get", "remove", "clear", "lock", "unlock"
		),
		selfHeal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regioncache_self_heal_total",
				Help: "Item entries deleted on read due to corruption or undecodable payloads",
			},
			[]string{"reason"}, // "corrupt", "value_decode"
		),
		genRetries: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regioncache_generation_retries_total",
				Help: "Operations retried because the region generation advanced mid-flight",
			},
		),
		genResets: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regioncache_generation_resets_total",
				Help: "Client-local generation rewinds after an external store flush",
			},
		),
		lockTimeouts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regioncache_lock_timeouts_total",
				Help: "Lock acquisitions that ran out of wait budget",
			},
		),
		clearOutages: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regioncache_clear_outages_total",
				Help: "Clear calls where both the generation advance and registry delete failed",
			},
		),
	}
}

func (h *Hooks) StoreUnavailable(op, _ string, _ error) {
	h.storeUnavailable.WithLabelValues(op).Inc()
}

func (h *Hooks) SelfHealItem(_, reason string) {
	h.selfHeal.WithLabelValues(reason).Inc()
}

func (h *Hooks) GenerationRetry(string, uint64, uint64) { h.genRetries.Inc() }
func (h *Hooks) GenerationReset(string, uint64, uint64) { h.genResets.Inc() }
func (h *Hooks) LockAcquireTimeout(string, string)      { h.lockTimeouts.Inc() }
func (h *Hooks) ClearOutage(string, error, error)       { h.clearOutages.Inc() }
