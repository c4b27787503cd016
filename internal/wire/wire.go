// Package wire defines the binary envelope wrapped around every data value
// before it reaches a provider. The envelope carries the entry's expiry
// deadline so the facade can enforce TTL semantics even on engines that only
// have a global lifetime, and lets corrupt foreign writes be detected and
// deleted on read.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("regioncache: corrupt entry")
	magic4     = [...]byte{'R', 'G', 'N', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Envelope: magic(4) | ver(1) | deadline(i64 be, unix milli; 0 = no expiry) |
// vlen(u32 be) | payload(vlen)
func Encode(deadline time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	var ms int64
	if !deadline.IsZero() {
		ms = deadline.UnixMilli()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(ms))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func Decode(b []byte) (deadline time.Time, payload []byte, err error) {
	const hdr = 4 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return time.Time{}, nil, ErrCorrupt
	}

	off := 5

	ms := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	if ms < 0 {
		return time.Time{}, nil, ErrCorrupt
	}
	if ms > 0 {
		deadline = time.UnixMilli(ms)
	}

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
		return time.Time{}, nil, ErrCorrupt
	}

	return deadline, b[off : off+vlen], nil
}
