// Package memory implements the regioncache provider on maypok86/otter, an
// in-process S3-FIFO cache. This is the process-local, shared-memory backend:
// every worker goroutine in the process sees the same entries. Full
// capability set — variable per-entry TTL, Range-based scans, and an atomic
// SetIfAbsent.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/maypok86/otter"

	pr "github.com/unkn0wn-root/regioncache/provider"
)

// Entries written with ttl <= 0 must not expire; otter's variable-TTL cache
// wants a concrete duration, so "never" is approximated far beyond any
// plausible process lifetime.
const noExpiry = 100 * 365 * 24 * time.Hour

type Provider struct {
	c otter.CacheWithVariableTTL[string, []byte]
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	MaxEntries int // 0 => 100_000
}

func New(cfg Config) (*Provider, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100_000
	}
	c, err := otter.MustBuilder[string, []byte](cfg.MaxEntries).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Capabilities() pr.Capabilities {
	return pr.Capabilities{
		Batch:     false, // otter has no multi-key calls; the facade loops
		Scan:      true,
		AtomicAdd: true,
		NativeTTL: true,
	}
}

func (p *Provider) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (p *Provider) FetchMany(context.Context, []string) (map[string][]byte, error) {
	return nil, pr.ErrNotSupported
}

func (p *Provider) Store(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.c.Set(key, value, effectiveTTL(ttl)), nil
}

func (p *Provider) StoreMany(context.Context, map[string][]byte, time.Duration) (map[string]bool, error) {
	return nil, pr.ErrNotSupported
}

// Delete's existed report is a Has-then-Delete pair, so a concurrent writer
// can slip between the two calls. Single-key counting is advisory here, same
// as every multi-key operation above it.
func (p *Provider) Delete(_ context.Context, key string) (bool, error) {
	existed := p.c.Has(key)
	p.c.Delete(key)
	return existed, nil
}

func (p *Provider) Exists(_ context.Context, key string) (bool, error) {
	return p.c.Has(key), nil
}

func (p *Provider) AddIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.c.SetIfAbsent(key, value, effectiveTTL(ttl)), nil
}

func (p *Provider) Scan(_ context.Context, prefix string, fn func(key string) bool) error {
	p.c.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			return fn(key)
		}
		return true
	})
	return nil
}

func (p *Provider) DeleteMatching(_ context.Context, prefix string) (int, error) {
	var matched []string
	p.c.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
		return true
	})
	for _, key := range matched {
		p.c.Delete(key)
	}
	return len(matched), nil
}

func (p *Provider) Close(context.Context) error {
	p.c.Close()
	return nil
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return noExpiry
	}
	return ttl
}
