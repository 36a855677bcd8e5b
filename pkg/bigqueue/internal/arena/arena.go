// Package arena implements one fixed-size memory-mapped segment of the
// bigqueue ring.
//
// An Arena owns a raw syscall.Mmap mapping of its backing file and exposes
// position-indexed byte and little-endian u64 access over it via the codec
// package. Mapping is production-identical to the teacher's
// mmapAndCreateCache: open-or-create, ftruncate the raw fd to the target
// size, then mmap PROT_READ|PROT_WRITE/MAP_SHARED.
package arena

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/arenafile/bigqueue/internal/fs"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/codec"
)

// Sentinel errors classifying why Open failed. Callers higher up the stack
// (package bigqueue) translate these into the public error taxonomy.
var (
	// ErrOpen indicates the backing file could not be opened or created.
	ErrOpen = errors.New("arena: open failed")

	// ErrSetLength indicates ftruncate could not size the file to the
	// requested arena size.
	ErrSetLength = errors.New("arena: set length failed")

	// ErrMmap indicates the mmap syscall failed.
	ErrMmap = errors.New("arena: mmap failed")
)

// ErrOutOfRange is re-exported from codec so callers of Arena's accessors
// don't need to import the codec package directly.
var ErrOutOfRange = codec.ErrOutOfRange

// Arena is one memory-mapped fixed-size file.
//
// Arena bytes are uninitialized beyond the record frames that have been
// written; callers must only read ranges covered by a committed frame.
// An Arena is not safe for concurrent mutation from two goroutines without
// external synchronization (the SPSC channel's discipline is what makes
// concurrent producer/consumer arena access safe in practice).
type Arena struct {
	file fs.File
	data []byte
	size int64
	path string
}

// Open opens (creating if absent) the file at path, sizes it to exactly
// size bytes, and memory-maps it read-write for the full length.
func Open(fsys fs.FS, path string, size int64) (*Arena, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrOpen, path, err)
	}

	fd := int(f.Fd())

	if err := syscall.Ftruncate(fd, size); err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("%w: truncate %s to %d bytes: %w", ErrSetLength, path, size, err)
	}

	data, err := syscall.Mmap(fd, 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("%w: mmap %s (%d bytes): %w", ErrMmap, path, size, err)
	}

	return &Arena{file: f, data: data, size: size, path: path}, nil
}

// Size returns the arena's fixed size in bytes.
func (a *Arena) Size() int64 { return a.size }

// Path returns the arena's backing file path.
func (a *Arena) Path() string { return a.path }

// ReadUint64At returns the little-endian u64 at offset.
func (a *Arena) ReadUint64At(offset int64) (uint64, error) {
	return codec.ReadUint64(a.data, offset)
}

// WriteUint64At writes the little-endian encoding of v at offset.
func (a *Arena) WriteUint64At(offset int64, v uint64) error {
	return codec.WriteUint64(a.data, offset, v)
}

// ReadBytesAt returns a copy of the length bytes starting at offset.
func (a *Arena) ReadBytesAt(offset, length int64) ([]byte, error) {
	return codec.ReadBytes(a.data, offset, length)
}

// WriteBytesAt copies src into the arena starting at offset.
func (a *Arena) WriteBytesAt(offset int64, src []byte) error {
	return codec.WriteBytes(a.data, offset, src)
}

// ReadUint64AtWindow is sugar for ReadUint64At(k * 8) — the k-th 8-byte slot.
func (a *Arena) ReadUint64AtWindow(k int) (uint64, error) {
	return a.ReadUint64At(int64(k) * codec.Uint64Size)
}

// WriteUint64AtWindow is sugar for WriteUint64At(k * 8, v).
func (a *Arena) WriteUint64AtWindow(k int, v uint64) error {
	return a.WriteUint64At(int64(k)*codec.Uint64Size, v)
}

// Flush asks the kernel to write dirty pages back to disk. It is
// best-effort: failures are swallowed, matching the spec's documented
// posture that arena/index persistence is not part of the durability
// contract — the next index update overwrites a partial one regardless.
func (a *Arena) Flush() {
	if a.data == nil {
		return
	}

	_ = unix.Msync(a.data, unix.MS_ASYNC)
}

// Close unmaps the arena and closes its backing file descriptor. Safe to
// call once; calling it twice is a programming error (mirrors os.File).
func (a *Arena) Close() error {
	if a.data != nil {
		_ = unix.Msync(a.data, unix.MS_SYNC)
		_ = syscall.Munmap(a.data)
		a.data = nil
	}

	return a.file.Close()
}
