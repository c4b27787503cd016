// Package provider defines the storage abstraction used by regioncache.
//
// Implementations MUST be byte-for-byte transparent: Fetch must return exactly
// the same []byte that was previously passed to Store for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Fetch are identical to the bytes
// provided to Store.
//
// TTL contract: ttl <= 0 means "no expiry" (or the engine's own global
// lifetime where nothing finer exists — see Capabilities.NativeTTL).
// Implementations must never treat a non-positive TTL as "expire now".
//
// Not every engine can implement the full surface. A provider publishes a
// Capabilities descriptor once at construction; methods outside its
// capability set return ErrNotSupported. regioncache probes the descriptor at
// Store construction time and never calls unsupported methods afterwards.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned by provider methods outside the engine's
// capability set (e.g. Scan on memcached).
var ErrNotSupported = errors.New("provider: operation not supported")

// Capabilities describes what the underlying engine can do. Produced once at
// provider construction and treated as immutable.
type Capabilities struct {
	// Batch reports that FetchMany/StoreMany are genuinely batched calls
	// (pipelined or multi-key), not loops over singles.
	Batch bool

	// Scan reports that Scan and DeleteMatching work. Required for
	// Keys/KeysWithPrefix/Purge on the facade.
	Scan bool

	// AtomicAdd reports that AddIfAbsent is atomic in the engine. Required
	// for advisory locking; a read-then-write emulation does not qualify.
	AtomicAdd bool

	// NativeTTL reports that the engine honors a per-entry TTL. When false
	// (e.g. BigCache's global life window) the facade enforces expiry via
	// its wire envelope instead of trusting Exists.
	NativeTTL bool
}

// Provider is a minimal byte store with TTLs. Must be safe for concurrent
// use across goroutines and, where the engine allows it, across processes.
type Provider interface {
	// Fetch returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Fetch(ctx context.Context, key string) ([]byte, bool, error)

	// FetchMany resolves all keys in one engine round trip and returns only
	// the keys that were present. Requires Capabilities.Batch.
	FetchMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// Store writes value with the given TTL. Returns ok=false when the
	// engine rejected the write under pressure (not an error).
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// StoreMany writes all items with one TTL and reports acceptance per
	// key. Callers must not assume all-or-nothing. Requires
	// Capabilities.Batch.
	StoreMany(ctx context.Context, items map[string][]byte, ttl time.Duration) (map[string]bool, error)

	// Delete removes a key. Returns true when an entry existed. Deleting an
	// absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports presence without fetching the value.
	Exists(ctx context.Context, key string) (bool, error)

	// AddIfAbsent stores value only when the key has no live entry.
	// Returns true when this call created the entry. Must be atomic when
	// Capabilities.AtomicAdd is set; never overwrites.
	AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Scan walks every key starting with prefix and calls fn for each;
	// fn returning false stops the walk. Consistency is whatever the engine
	// gives (a live view, not a snapshot). Requires Capabilities.Scan.
	Scan(ctx context.Context, prefix string, fn func(key string) bool) error

	// DeleteMatching removes every key starting with prefix and returns how
	// many entries it removed. Requires Capabilities.Scan.
	DeleteMatching(ctx context.Context, prefix string) (int, error)

	// Capabilities returns the engine's capability descriptor.
	Capabilities() Capabilities

	// Close releases resources.
	Close(ctx context.Context) error
}
