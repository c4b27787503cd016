package regioncache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/regioncache/codec"
	pr "github.com/unkn0wn-root/regioncache/provider"
)

// Store is the high-level, provider-agnostic cache facade for one region.
// V is the caller's value type. Serialization is handled by a pluggable
// Codec[V].
//
// Absence is not an error anywhere on this surface: a missing key comes back
// as (zero, false, nil) or is simply left out of a bulk result.
type Store[V any] interface {
	Region() Region
	Close(context.Context) error

	// Single
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// Set writes value with ttl. A write the provider refuses under
	// pressure (eviction, admission policy) is not an error: Set returns
	// nil and reports the rejection through Hooks.StoreRejected. Only
	// codec and transport failures surface as errors.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) (existed bool, err error)
	Has(ctx context.Context, key string) (bool, error)

	// Bulk. Not atomic as a whole: racy with concurrent single-key writers.
	GetMany(ctx context.Context, keys []string) (values map[string]V, missing []string, err error)
	SetMany(ctx context.Context, items map[string]V, ttl time.Duration) (stored int, err error)
	DeleteMany(ctx context.Context, keys []string) (deleted int, err error)
	HasAny(ctx context.Context, keys []string) (bool, error)
	HasAll(ctx context.Context, keys []string) (bool, error)

	// Region-wide. Purge removes only this region's data entries; lock
	// entries and other regions sharing the provider are untouched.
	Purge(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)

	// Locks returns the advisory lock manager for this region.
	Locks() LockManager
}

// Options tune the behavior of a Store. Only Region, Provider and Codec are
// required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Region   Region
	Provider pr.Provider
	Codec    c.Codec[V]

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// DefaultTTL is applied when Set/SetMany receive ttl == 0. The zero
	// value means entries without an explicit TTL never expire. Pass a
	// negative ttl to a write to force "no expiry" regardless of this
	// default.
	DefaultTTL time.Duration

	// LockTTL bounds how long an acquired lock may be held before the
	// provider expires it. 0 => locks never expire on their own.
	LockTTL time.Duration

	// DisableScan opts out of Keys/KeysWithPrefix/Purge so that providers
	// without a scan primitive (e.g. memcached, ristretto) can be used.
	// The disabled operations return ErrScanDisabled.
	DisableScan bool

	// DisableLocks opts out of advisory locking for providers without an
	// atomic add-if-absent. Lock operations return ErrLocksDisabled.
	DisableLocks bool
}

// New constructs a Store for opts.Region and probes the provider's
// capability descriptor once, up front. A provider that cannot support scans
// or atomic adds is rejected here with a *CapabilityError unless the
// corresponding feature is explicitly disabled — capability failures never
// surface per-operation.
func New[V any](opts Options[V]) (Store[V], error) {
	return newStore[V](opts)
}
