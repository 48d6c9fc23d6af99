// Package regioncache implements a best-effort, generation-versioned cache
// client over a shared remote key/value store. Independent processes read and
// write named regions; clearing a region advances its generation counter, so
// every previously written entry becomes unreachable at once without
// enumerating a single key.
//
// Components:
//   - store.Store: atomic byte store with per-key TTLs (Redis for shared
//     deployments, Ristretto for a single process).
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//   - Region[V]: the public surface (Put/Get/Remove/Clear/Lock/Unlock).
//
// Keys (owned by regioncache; external code must not write under these
// prefixes):
//
//	gen:<region>              - authoritative generation counter
//	reg:<region>              - coarse "region has items" marker
//	item:<region>:<gen>:<id>  - one cached value in one generation
//	lock:<region>:<id>        - transient lock entries (generation-free)
//
// Every read and write resolves the client's last-observed generation,
// performs the store operation under it, then re-reads the authoritative
// counter and retries the operation when another client advanced it
// mid-flight. Locks bypass the generation entirely so a lock held across a
// concurrent Clear stays releasable by its holder.
//
// The cache is strictly best-effort: store unavailability is absorbed at the
// Region boundary. Put/Remove/Lock/Unlock return normally and Get reports a
// miss; only serialization failures surface to the caller.
package regioncache
