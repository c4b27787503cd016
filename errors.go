package regioncache

import (
	"errors"
	"fmt"
)

var (
	// ErrScanDisabled is returned by Keys, KeysWithPrefix and Purge on a
	// Store constructed with Options.DisableScan.
	ErrScanDisabled = errors.New("regioncache: key scans disabled for this store")

	// ErrLocksDisabled is returned by every LockManager method on a Store
	// constructed with Options.DisableLocks.
	ErrLocksDisabled = errors.New("regioncache: locking disabled for this store")
)

// InvalidRegionError reports a malformed region identifier: an empty
// required component, or a component containing the reserved delimiter.
type InvalidRegionError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidRegionError) Error() string {
	return fmt.Sprintf("regioncache: invalid region %s %q: %s", e.Field, e.Value, e.Reason)
}

// CapabilityError is returned by New when the provider's capability
// descriptor cannot support a facade feature that was not explicitly
// disabled. It is the startup analog of "backend unavailable": a failed
// probe prevents the store from being constructed at all instead of
// surfacing on individual calls.
type CapabilityError struct {
	Missing string // the capability the provider lacks
	Hint    string // the Options switch that would accept the degraded provider
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("regioncache: provider does not support %s (set Options.%s to opt out)", e.Missing, e.Hint)
}
