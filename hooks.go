package regioncache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the store calls them on
// hot paths. Wrap with hooks/async to offload slow sinks.
type Hooks interface {
	// A read found an entry past its envelope deadline; the entry was
	// deleted on read.
	EntryExpired(storageKey string)

	// A read found an entry it could not decode and deleted it.
	// reason ∈ {"envelope", "value_decode"}
	EntryCorrupt(storageKey, reason string)

	// Provider returned ok=false on a write (backpressure/eviction).
	StoreRejected(storageKey string, bulk bool)

	// Purge finished sweeping a region's data prefix.
	PurgeSwept(region string, removed int)

	// A lock operation was denied because another owner holds the entry.
	LockDenied(storageKey, owner string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) EntryExpired(string)         {}
func (NopHooks) EntryCorrupt(string, string) {}
func (NopHooks) StoreRejected(string, bool)  {}
func (NopHooks) PurgeSwept(string, int)      {}
func (NopHooks) LockDenied(string, string)   {}
