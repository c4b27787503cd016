// Package regioncache implements a provider-agnostic, prefix-partitioned
// cache store. Each Store instance owns one region — a logical namespace
// derived from a (mode, component, area, instance) identifier tuple — inside
// a shared backend, plus an advisory lock manager scoped under a separate
// lock prefix so purging data never releases locks.
//
// Components:
//   - Provider: byte store with TTL, scan, and an atomic add-if-absent
//     primitive (e.g. otter, Redis, BigCache, Ristretto, memcached).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - LockManager: advisory per-key ownership locks backed by the same
//     provider.
//
// Keys:
//
//	<mode>/<component>/<area>/<instance>/d/<key>  - data entries
//	<mode>/<component>/<area>/<instance>/l/<key>  - lock entries
//
// The delimiter '/' is reserved and rejected inside identifier components,
// so no two regions can collide on a prefix boundary.
//
// Multi-key operations (GetMany, SetMany, DeleteMany, Purge) are not atomic
// as a whole: they race with concurrent single-key writers, matching the
// reality of backends without multi-key transactions. Lock acquisition is the
// only strict-atomicity point and maps directly to the provider's
// add-if-absent primitive. Absence is never an error: misses come back as
// (zero, false, nil).
package regioncache
