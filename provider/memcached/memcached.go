// Package memcached implements the regioncache provider on
// bradfitz/gomemcache.
//
// Capability set: GetMulti gives genuinely batched fetches and memcached's
// Add command is an atomic add-if-absent, so locking works. The protocol has
// no key iteration, so stores built on it must opt out of scans
// (DisableScan). StoreMany loops singles — memcached has no multi-set — but
// still reports acceptance per key.
package memcached

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	pr "github.com/unkn0wn-root/regioncache/provider"
)

var ErrNoServers = errors.New("memcached provider: no servers configured")

type Provider struct {
	mc *memcache.Client
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Servers []string      // host:port list, consistently hashed
	Timeout time.Duration // per-op socket timeout; 0 => client default
}

func New(cfg Config) (*Provider, error) {
	if len(cfg.Servers) == 0 {
		return nil, ErrNoServers
	}
	mc := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
	}
	return &Provider{mc: mc}, nil
}

func (p *Provider) Capabilities() pr.Capabilities {
	return pr.Capabilities{Batch: true, Scan: false, AtomicAdd: true, NativeTTL: true}
}

func (p *Provider) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	it, err := p.mc.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return it.Value, true, nil
}

func (p *Provider) FetchMany(_ context.Context, keys []string) (map[string][]byte, error) {
	items, err := p.mc.GetMulti(keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(items))
	for k, it := range items {
		out[k] = it.Value
	}
	return out, nil
}

func (p *Provider) Store(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.mc.Set(&memcache.Item{Key: key, Value: value, Expiration: expiration(ttl)})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) StoreMany(ctx context.Context, items map[string][]byte, ttl time.Duration) (map[string]bool, error) {
	out := make(map[string]bool, len(items))
	exp := expiration(ttl)
	for key, value := range items {
		err := p.mc.Set(&memcache.Item{Key: key, Value: value, Expiration: exp})
		out[key] = err == nil
	}
	return out, nil
}

func (p *Provider) Delete(_ context.Context, key string) (bool, error) {
	err := p.mc.Delete(key)
	if err == memcache.ErrCacheMiss {
		return false, nil
	}
	return err == nil, err
}

func (p *Provider) Exists(_ context.Context, key string) (bool, error) {
	// memcached has no pure existence probe; a fetch is the cheapest truth.
	_, err := p.mc.Get(key)
	if err == memcache.ErrCacheMiss {
		return false, nil
	}
	return err == nil, err
}

func (p *Provider) AddIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.mc.Add(&memcache.Item{Key: key, Value: value, Expiration: expiration(ttl)})
	if err == memcache.ErrNotStored {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Scan(context.Context, string, func(string) bool) error {
	return pr.ErrNotSupported
}

func (p *Provider) DeleteMatching(context.Context, string) (int, error) {
	return 0, pr.ErrNotSupported
}

func (p *Provider) Close(context.Context) error {
	return p.mc.Close()
}

// relativeCutoff is memcached's 30-day boundary: Expiration values up to it
// are relative seconds, anything larger is read as an absolute unix
// timestamp.
const relativeCutoff = 30 * 24 * 60 * 60

// expiration converts a TTL to memcached's Expiration field, rounding up so
// short TTLs don't collapse to "no expiry". TTLs beyond 30 days must travel
// as an absolute unix timestamp — sent as relative seconds the server would
// treat them as an epoch in 1970 and expire the entry immediately.
// ttl <= 0 => 0 (never expires).
func expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int32((ttl + time.Second - 1) / time.Second)
	if secs > relativeCutoff {
		return int32(time.Now().Unix()) + secs
	}
	return secs
}
