package regioncache

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/regioncache/codec"
	"github.com/unkn0wn-root/regioncache/internal/wire"
	pr "github.com/unkn0wn-root/regioncache/provider"
)

type store[V any] struct {
	region   Region
	provider pr.Provider
	codec    c.Codec[V]
	log      Logger
	hooks    Hooks
	caps     pr.Capabilities

	defaultTTL time.Duration
	scanOK     bool
	locks      LockManager
}

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("regioncache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("regioncache: codec is required")
	}
	if err := opts.Region.Validate(); err != nil {
		return nil, err
	}

	caps := opts.Provider.Capabilities()
	if !caps.Scan && !opts.DisableScan {
		return nil, &CapabilityError{Missing: "key scans", Hint: "DisableScan"}
	}
	if !caps.AtomicAdd && !opts.DisableLocks {
		return nil, &CapabilityError{Missing: "atomic add-if-absent", Hint: "DisableLocks"}
	}

	s := &store[V]{
		region:     opts.Region,
		provider:   opts.Provider,
		codec:      opts.Codec,
		caps:       caps,
		defaultTTL: opts.DefaultTTL,
		scanOK:     caps.Scan && !opts.DisableScan,
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.DisableLocks {
		s.locks = disabledLocks{}
	} else {
		s.locks = &lockManager{
			region:   opts.Region,
			provider: opts.Provider,
			ttl:      opts.LockTTL,
			hooks:    s.hooks,
			log:      s.log,
		}
	}
	return s, nil
}

func (s *store[V]) Region() Region     { return s.region }
func (s *store[V]) Locks() LockManager { return s.locks }

func (s *store[V]) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}

// effectiveTTL resolves the write TTL: 0 => region default, negative =>
// explicit "no expiry". The returned value is <= 0 only for "no expiry".
func (s *store[V]) effectiveTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return s.defaultTTL
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}

func (s *store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := s.region.dataKey(key)
	raw, ok, err := s.provider.Fetch(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, ok := s.decodeEntry(ctx, k, raw)
	return v, ok, nil
}

// decodeEntry unwraps and decodes a raw provider value. Corrupt or expired
// entries are deleted on read (self-heal) and reported as misses.
func (s *store[V]) decodeEntry(ctx context.Context, storageKey string, raw []byte) (V, bool) {
	var zero V
	deadline, payload, err := wire.Decode(raw)
	if err != nil {
		_, _ = s.provider.Delete(ctx, storageKey)
		s.hooks.EntryCorrupt(storageKey, "envelope")
		return zero, false
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		_, _ = s.provider.Delete(ctx, storageKey)
		s.hooks.EntryExpired(storageKey)
		return zero, false
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		_, _ = s.provider.Delete(ctx, storageKey)
		s.hooks.EntryCorrupt(storageKey, "value_decode")
		return zero, false
	}
	return v, true
}

func (s *store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	ttl = s.effectiveTTL(ttl)
	payload, err := s.codec.Encode(value)
	if err != nil {
		return err
	}
	k := s.region.dataKey(key)
	ok, err := s.provider.Store(ctx, k, wire.Encode(deadlineFor(ttl), payload), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.StoreRejected(k, false)
		s.log.Debug("set rejected by provider", Fields{"key": key})
	}
	return nil
}

func (s *store[V]) Delete(ctx context.Context, key string) (bool, error) {
	return s.provider.Delete(ctx, s.region.dataKey(key))
}

func (s *store[V]) Has(ctx context.Context, key string) (bool, error) {
	k := s.region.dataKey(key)
	if s.caps.NativeTTL {
		return s.provider.Exists(ctx, k)
	}
	// Engines with only a global lifetime (e.g. BigCache) may report stale
	// presence; validate the envelope deadline instead.
	raw, ok, err := s.provider.Fetch(ctx, k)
	if err != nil || !ok {
		return false, err
	}
	deadline, _, err := wire.Decode(raw)
	if err != nil {
		_, _ = s.provider.Delete(ctx, k)
		s.hooks.EntryCorrupt(k, "envelope")
		return false, nil
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		_, _ = s.provider.Delete(ctx, k)
		s.hooks.EntryExpired(k)
		return false, nil
	}
	return true, nil
}

func (s *store[V]) GetMany(ctx context.Context, keys []string) (map[string]V, []string, error) {
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil, nil
	}

	if !s.caps.Batch {
		// sequential fallback; still per-key results, never a single
		// pass/fail
		var missing []string
		for _, key := range keys {
			v, ok, err := s.Get(ctx, key)
			if err != nil {
				return out, missing, err
			}
			if ok {
				out[key] = v
			} else {
				missing = append(missing, key)
			}
		}
		return out, missing, nil
	}

	storage := make([]string, len(keys))
	for i, key := range keys {
		storage[i] = s.region.dataKey(key)
	}
	fetched, err := s.provider.FetchMany(ctx, storage)
	if err != nil {
		return out, nil, err
	}

	var missing []string
	for i, key := range keys {
		raw, ok := fetched[storage[i]]
		if !ok {
			missing = append(missing, key)
			continue
		}
		if v, ok := s.decodeEntry(ctx, storage[i], raw); ok {
			out[key] = v
		} else {
			missing = append(missing, key)
		}
	}
	return out, missing, nil
}

func (s *store[V]) SetMany(ctx context.Context, items map[string]V, ttl time.Duration) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	ttl = s.effectiveTTL(ttl)
	deadline := deadlineFor(ttl)

	if !s.caps.Batch {
		stored := 0
		for key, value := range items {
			payload, err := s.codec.Encode(value)
			if err != nil {
				return stored, err
			}
			k := s.region.dataKey(key)
			ok, err := s.provider.Store(ctx, k, wire.Encode(deadline, payload), ttl)
			if err != nil {
				return stored, err
			}
			if ok {
				stored++
			} else {
				s.hooks.StoreRejected(k, true)
			}
		}
		return stored, nil
	}

	enc := make(map[string][]byte, len(items))
	for key, value := range items {
		payload, err := s.codec.Encode(value)
		if err != nil {
			return 0, err
		}
		enc[s.region.dataKey(key)] = wire.Encode(deadline, payload)
	}

	// Count acceptance straight from the provider's per-key results; never
	// infer failures from collection sizes.
	res, err := s.provider.StoreMany(ctx, enc, ttl)
	stored := 0
	for k, ok := range res {
		if ok {
			stored++
		} else {
			s.hooks.StoreRejected(k, true)
		}
	}
	return stored, err
}

func (s *store[V]) DeleteMany(ctx context.Context, keys []string) (int, error) {
	deleted := 0
	for _, key := range keys {
		existed, err := s.provider.Delete(ctx, s.region.dataKey(key))
		if err != nil {
			return deleted, err
		}
		if existed {
			deleted++
		}
	}
	return deleted, nil
}

func (s *store[V]) HasAny(ctx context.Context, keys []string) (bool, error) {
	for _, key := range keys {
		ok, err := s.Has(ctx, key)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *store[V]) HasAll(ctx context.Context, keys []string) (bool, error) {
	for _, key := range keys {
		ok, err := s.Has(ctx, key)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *store[V]) Purge(ctx context.Context) error {
	if !s.scanOK {
		return ErrScanDisabled
	}
	// Sweeps the data prefix only; lock entries live under a disjoint
	// prefix and survive a purge.
	removed, err := s.provider.DeleteMatching(ctx, s.region.dataPrefix())
	if err != nil {
		return err
	}
	s.hooks.PurgeSwept(s.region.String(), removed)
	s.log.Debug("purged region", Fields{"region": s.region.String(), "removed": removed})
	return nil
}

func (s *store[V]) Keys(ctx context.Context) ([]string, error) {
	return s.KeysWithPrefix(ctx, "")
}

func (s *store[V]) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if !s.scanOK {
		return nil, ErrScanDisabled
	}
	out := make([]string, 0)
	err := s.provider.Scan(ctx, s.region.dataPrefix()+prefix, func(storageKey string) bool {
		if key, ok := s.region.stripData(storageKey); ok {
			out = append(out, key)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deadlineFor(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
