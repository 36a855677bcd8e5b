// Package fs provides filesystem abstractions used by the bigqueue core.
//
// The main types are:
//   - [FS]: interface for the filesystem operations arenas and the index need
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using the [os] package
//   - [Chaos]: testing implementation that injects random I/O failures
//
// bigqueue never talks to [os] directly outside this package; every arena and
// index file is opened, created, stat'd, or removed through an [FS], so tests
// can swap in [Chaos] to exercise the Io/Read/Write error paths without a real
// disk fault.
package fs

import (
	"io"
	"os"
)

// File represents an OS-backed open file descriptor.
//
// Satisfied by [os.File]. [File.Fd] must return a valid OS file descriptor
// usable with syscalls (mmap, ftruncate, msync) until the file is closed.
type File interface {
	io.ReadWriteCloser
	io.Seeker

	// Fd returns the file descriptor. Used for syscall.Mmap/Ftruncate.
	Fd() uintptr

	// Stat returns the os.FileInfo for this file.
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to disk.
	Sync() error
}

// FS defines the filesystem operations the bigqueue core performs.
//
// Two implementations are provided:
//   - [Real]: production use, wraps the [os] package
//   - [Chaos]: testing use, injects random failures
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// ReadDir reads a directory and returns its entries. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error

	// WriteFileAtomic writes data to a file atomically (temp file + rename).
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error
}

// Compile-time interface check.
var _ File = (*os.File)(nil)
