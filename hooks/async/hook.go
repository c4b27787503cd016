// Package asynchook decouples hook sinks from the store's hot paths: events
// are queued and replayed by a small worker pool, and dropped when the queue
// is full rather than ever blocking a cache call.
//
// usage:
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{ExpiredEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := regioncache.New[User](regioncache.Options[User]{
//	    Region:   region,
//	    Provider: provider,
//	    Codec:    codec.JSON[User]{},
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/regioncache"
)

type Hooks struct {
	inner regioncache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ regioncache.Hooks = (*Hooks)(nil)

func New(inner regioncache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) EntryExpired(k string) { h.try(func() { h.inner.EntryExpired(k) }) }
func (h *Hooks) EntryCorrupt(k, reason string) {
	h.try(func() { h.inner.EntryCorrupt(k, reason) })
}
func (h *Hooks) StoreRejected(k string, bulk bool) {
	h.try(func() { h.inner.StoreRejected(k, bulk) })
}
func (h *Hooks) PurgeSwept(region string, removed int) {
	h.try(func() { h.inner.PurgeSwept(region, removed) })
}
func (h *Hooks) LockDenied(k, owner string) { h.try(func() { h.inner.LockDenied(k, owner) }) }
