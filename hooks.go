package regioncache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// The store could not be reached; the operation was absorbed as a
	// miss/no-op at the Region boundary. id is empty for region-wide ops.
	// op ∈ {"put", "get", "remove", "clear", "lock", "unlock"}
	StoreUnavailable(op, id string, err error)

	// An item entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHealItem(storageKey, reason string)

	// The authoritative generation advanced mid-operation (another client
	// cleared the region); the operation was retried under `to`.
	GenerationRetry(region string, from, to uint64)

	// The authoritative counter disappeared (external flush) and was
	// re-bootstrapped; the client-local generation rewound from `from` to `to`.
	GenerationReset(region string, from, to uint64)

	// Lock wait budget elapsed without acquisition.
	LockAcquireTimeout(region, id string)

	// Both the generation advance and the registry delete failed during
	// Clear (likely backend outage).
	ClearOutage(region string, advanceErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StoreUnavailable(string, string, error) {}
func (NopHooks) SelfHealItem(string, string)            {}
func (NopHooks) GenerationRetry(string, uint64, uint64) {}
func (NopHooks) GenerationReset(string, uint64, uint64) {}
func (NopHooks) LockAcquireTimeout(string, string)      {}
func (NopHooks) ClearOutage(string, error, error)       {}
