// Package otelhook counts regioncache hook events with the OpenTelemetry
// metric API. Counters are cheap enough to sit directly on the hot path; no
// async wrapper needed.
package otelhook

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/regioncache"
)

type Hooks struct {
	expired    metric.Int64Counter
	corrupt    metric.Int64Counter
	rejected   metric.Int64Counter
	purged     metric.Int64Counter
	lockDenied metric.Int64Counter
}

var _ regioncache.Hooks = (*Hooks)(nil)

// New registers counters on the named meter (usually your service name).
func New(meterName string) (*Hooks, error) {
	m := otel.Meter(meterName)

	h := &Hooks{}
	var err error
	if h.expired, err = m.Int64Counter("regioncache.entries_expired",
		metric.WithDescription("entries deleted on read past their envelope deadline")); err != nil {
		return nil, err
	}
	if h.corrupt, err = m.Int64Counter("regioncache.entries_corrupt",
		metric.WithDescription("undecodable entries deleted on read")); err != nil {
		return nil, err
	}
	if h.rejected, err = m.Int64Counter("regioncache.stores_rejected",
		metric.WithDescription("writes the provider refused under pressure")); err != nil {
		return nil, err
	}
	if h.purged, err = m.Int64Counter("regioncache.entries_purged",
		metric.WithDescription("entries removed by region purges")); err != nil {
		return nil, err
	}
	if h.lockDenied, err = m.Int64Counter("regioncache.locks_denied",
		metric.WithDescription("lock operations denied by ownership")); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hooks) EntryExpired(string) {
	h.expired.Add(context.Background(), 1)
}

func (h *Hooks) EntryCorrupt(_ string, reason string) {
	h.corrupt.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (h *Hooks) StoreRejected(_ string, bulk bool) {
	h.rejected.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("bulk", bulk)))
}

func (h *Hooks) PurgeSwept(region string, removed int) {
	h.purged.Add(context.Background(), int64(removed),
		metric.WithAttributes(attribute.String("region", region)))
}

func (h *Hooks) LockDenied(string, string) {
	h.lockDenied.Add(context.Background(), 1)
}
