// Package codec implements the fixed little-endian wire format bigqueue
// writes into a memory-mapped arena region: 64-bit integers and raw byte
// slices at an explicit offset.
//
// Byte order is always little-endian. This keeps arena files portable
// between processes on the same machine; cross-endian interoperation is not
// a goal, but fixing the choice removes any ambiguity about how a record's
// length word is encoded.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Uint64Size is the on-disk width of a length or index word.
const Uint64Size = 8

// ErrOutOfRange is returned when an offset (plus the access width) falls
// outside the bounds of the region being read or written.
var ErrOutOfRange = errors.New("codec: offset out of range")

// WriteUint64 writes the little-endian encoding of v to region[offset:offset+8].
func WriteUint64(region []byte, offset int64, v uint64) error {
	if offset < 0 || offset+Uint64Size > int64(len(region)) {
		return fmt.Errorf("%w: write u64 at %d (region size %d)", ErrOutOfRange, offset, len(region))
	}

	binary.LittleEndian.PutUint64(region[offset:offset+Uint64Size], v)

	return nil
}

// ReadUint64 returns the little-endian u64 at region[offset:offset+8].
func ReadUint64(region []byte, offset int64) (uint64, error) {
	if offset < 0 || offset+Uint64Size > int64(len(region)) {
		return 0, fmt.Errorf("%w: read u64 at %d (region size %d)", ErrOutOfRange, offset, len(region))
	}

	return binary.LittleEndian.Uint64(region[offset : offset+Uint64Size]), nil
}

// WriteBytes copies src into region starting at offset.
func WriteBytes(region []byte, offset int64, src []byte) error {
	end := offset + int64(len(src))
	if offset < 0 || end > int64(len(region)) {
		return fmt.Errorf("%w: write %d bytes at %d (region size %d)", ErrOutOfRange, len(src), offset, len(region))
	}

	copy(region[offset:end], src)

	return nil
}

// ReadBytes returns a freshly allocated copy of region[offset:offset+length].
//
// The caller never gets a slice that aliases the mmap'd region: callers
// retain the returned buffer past the lifetime of any page flip, and an
// arena handle can be unmapped (via shrink or cache eviction) while a
// previously returned payload is still held by the caller.
func ReadBytes(region []byte, offset int64, length int64) ([]byte, error) {
	end := offset + length
	if offset < 0 || length < 0 || end > int64(len(region)) {
		return nil, fmt.Errorf("%w: read %d bytes at %d (region size %d)", ErrOutOfRange, length, offset, len(region))
	}

	out := make([]byte, length)
	copy(out, region[offset:end])

	return out, nil
}
