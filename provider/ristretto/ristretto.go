// Package ristretto implements the regioncache provider on
// dgraph-io/ristretto.
//
// Degraded capability set: ristretto honors per-entry TTLs but offers no key
// iteration and no atomic add-if-absent, so stores built on it must opt out
// of scans and locking (DisableScan/DisableLocks). Useful as a pure
// look-aside data cache where Purge/Keys are not needed.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/regioncache/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Capabilities() pr.Capabilities {
	return pr.Capabilities{Batch: false, Scan: false, AtomicAdd: false, NativeTTL: true}
}

func (p *Provider) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) FetchMany(context.Context, []string) (map[string][]byte, error) {
	return nil, pr.ErrNotSupported
}

func (p *Provider) Store(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // ristretto treats 0 as "no expiry" and rejects negatives
	}
	return p.c.SetWithTTL(key, value, int64(len(value)), ttl), nil
}

func (p *Provider) StoreMany(context.Context, map[string][]byte, time.Duration) (map[string]bool, error) {
	return nil, pr.ErrNotSupported
}

// Delete's existed report is Get-then-Del; admission buffering makes counts
// advisory anyway.
func (p *Provider) Delete(_ context.Context, key string) (bool, error) {
	_, existed := p.c.Get(key)
	p.c.Del(key)
	return existed, nil
}

func (p *Provider) Exists(_ context.Context, key string) (bool, error) {
	_, ok := p.c.Get(key)
	return ok, nil
}

func (p *Provider) AddIfAbsent(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, pr.ErrNotSupported
}

func (p *Provider) Scan(context.Context, string, func(string) bool) error {
	return pr.ErrNotSupported
}

func (p *Provider) DeleteMatching(context.Context, string) (int, error) {
	return 0, pr.ErrNotSupported
}

func (p *Provider) Close(context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters for applications that want them
// (not part of the provider contract).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
