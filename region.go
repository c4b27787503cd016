package regioncache

import "strings"

// Delimiter separates identifier components inside storage keys. It is
// reserved: no Region component may contain it. This is what keeps prefixes
// of distinct regions from colliding on an ambiguous boundary (the regions
// ("a","b") and ("a","bx") can never share a prefix because every component
// is terminated by a character it cannot contain).
const Delimiter = "/"

const (
	dataSegment = "d" + Delimiter
	lockSegment = "l" + Delimiter
)

// Mode partitions regions by lifetime class, mirroring how host cache
// frameworks group their definitions.
type Mode string

const (
	ModeApplication Mode = "app"
	ModeSession     Mode = "ses"
	ModeRequest     Mode = "req"
)

// Region identifies one logical cache namespace inside a shared provider.
// The derived prefix is deterministic; two Stores constructed with equal
// Regions address the same entries.
type Region struct {
	Mode      Mode
	Component string
	Area      string

	// InstanceID distinguishes multiple instances of one definition.
	// May be empty.
	InstanceID string
}

// Validate reports whether the tuple is well formed: Mode, Component and
// Area must be non-empty and no component may contain the reserved
// delimiter.
func (r Region) Validate() error {
	for _, f := range []struct{ name, v string }{
		{"mode", string(r.Mode)},
		{"component", r.Component},
		{"area", r.Area},
	} {
		if f.v == "" {
			return &InvalidRegionError{Field: f.name, Value: f.v, Reason: "must not be empty"}
		}
	}
	for _, f := range []struct{ name, v string }{
		{"mode", string(r.Mode)},
		{"component", r.Component},
		{"area", r.Area},
		{"instance", r.InstanceID},
	} {
		if strings.Contains(f.v, Delimiter) {
			return &InvalidRegionError{Field: f.name, Value: f.v, Reason: "contains the reserved delimiter " + Delimiter}
		}
	}
	return nil
}

// String renders the delimiter-joined tuple, e.g. "app/core/string_manager/"
// for an empty instance id.
func (r Region) String() string {
	return string(r.Mode) + Delimiter + r.Component + Delimiter + r.Area + Delimiter + r.InstanceID
}

func (r Region) prefix() string {
	return r.String() + Delimiter
}

// dataPrefix owns every cache entry of the region; lockPrefix owns its lock
// markers. They are deliberately disjoint so a data purge cannot release
// locks.
func (r Region) dataPrefix() string { return r.prefix() + dataSegment }
func (r Region) lockPrefix() string { return r.prefix() + lockSegment }

// dataKey prepends the region's data prefix. For a fixed region this is a
// bijection over user keys; stripData is its inverse.
func (r Region) dataKey(key string) string { return r.dataPrefix() + key }
func (r Region) lockKey(key string) string { return r.lockPrefix() + key }

func (r Region) stripData(storageKey string) (string, bool) {
	p := r.dataPrefix()
	if !strings.HasPrefix(storageKey, p) {
		return "", false
	}
	return storageKey[len(p):], true
}
