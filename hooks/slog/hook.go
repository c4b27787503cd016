// Package sloghook logs regioncache hook events through log/slog, with
// optional sampling so a storm of expirations cannot flood the log.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/regioncache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery  uint64
	RejectedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr  atomic.Uint64
	rejectedCtr atomic.Uint64
}

var _ regioncache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EntryExpired(storageKey string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("regioncache.entry_expired", "key", h.redact(storageKey))
}

func (h *Hooks) EntryCorrupt(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("regioncache.entry_corrupt",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) StoreRejected(storageKey string, bulk bool) {
	if h.l == nil || !sample(h.opts.RejectedEvery, &h.rejectedCtr) {
		return
	}
	h.l.Info("regioncache.store_rejected",
		"key", h.redact(storageKey),
		"bulk", bulk)
}

func (h *Hooks) PurgeSwept(region string, removed int) {
	if h.l == nil {
		return
	}
	h.l.Info("regioncache.purge_swept",
		"region", region,
		"removed", removed)
}

func (h *Hooks) LockDenied(storageKey, owner string) {
	if h.l == nil {
		return
	}
	h.l.Debug("regioncache.lock_denied",
		"key", h.redact(storageKey),
		"owner", owner)
}
