// Package bigcache implements the regioncache provider on
// allegro/bigcache/v3.
//
// Degraded capability set: BigCache has a single global life window, so
// NativeTTL is false — the facade enforces per-entry expiry through its wire
// envelope instead. There is no atomic add-if-absent either, so stores built
// on this provider must opt out of locking. Scans work through BigCache's
// iterator.
package bigcache

import (
	"context"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/regioncache/provider"
)

type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Capabilities() pr.Capabilities {
	return pr.Capabilities{Batch: false, Scan: true, AtomicAdd: false, NativeTTL: false}
}

func (p *Provider) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (p *Provider) FetchMany(context.Context, []string) (map[string][]byte, error) {
	return nil, pr.ErrNotSupported
}

func (p *Provider) Store(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	// Per-entry TTL is unsupported; entries live for the global LifeWindow.
	return true, p.c.Set(key, value)
}

func (p *Provider) StoreMany(context.Context, map[string][]byte, time.Duration) (map[string]bool, error) {
	return nil, pr.ErrNotSupported
}

func (p *Provider) Delete(_ context.Context, key string) (bool, error) {
	err := p.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return false, nil
	}
	return err == nil, err
}

func (p *Provider) Exists(_ context.Context, key string) (bool, error) {
	_, err := p.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return false, nil
	}
	return err == nil, err
}

func (p *Provider) AddIfAbsent(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, pr.ErrNotSupported
}

func (p *Provider) Scan(_ context.Context, prefix string, fn func(key string) bool) error {
	it := p.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			// Entry evicted between SetNext and Value; skip it.
			continue
		}
		if !strings.HasPrefix(info.Key(), prefix) {
			continue
		}
		if !fn(info.Key()) {
			return nil
		}
	}
	return nil
}

func (p *Provider) DeleteMatching(ctx context.Context, prefix string) (int, error) {
	var matched []string
	if err := p.Scan(ctx, prefix, func(key string) bool {
		matched = append(matched, key)
		return true
	}); err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range matched {
		if err := p.c.Delete(key); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (p *Provider) Close(context.Context) error {
	return p.c.Close()
}
