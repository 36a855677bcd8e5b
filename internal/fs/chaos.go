package fs

import (
	"errors"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always). The zero value
// disables all fault injection.
type ChaosConfig struct {
	// OpenFailRate controls how often Open/OpenFile fail to open a file.
	OpenFailRate float64

	// ReadFailRate controls how often File.Read fails, returning EIO.
	ReadFailRate float64

	// WriteFailRate controls how often File.Write fails entirely.
	WriteFailRate float64

	// SyncFailRate controls how often File.Sync (fsync) fails.
	SyncFailRate float64

	// MkdirAllFailRate controls how often MkdirAll fails.
	MkdirAllFailRate float64

	// RemoveFailRate controls how often Remove fails.
	RemoveFailRate float64

	// StatFailRate controls how often Stat/Exists fail on a path.
	StatFailRate float64
}

// ChaosError marks an error as intentionally injected by [Chaos].
// It wraps the underlying error so errors.Is/As keep working.
type ChaosError struct {
	Err error
}

func (e *ChaosError) Error() string { return "chaos: " + e.Err.Error() }
func (e *ChaosError) Unwrap() error { return e.Err }

// ChaosStats contains counts of injected faults, useful for asserting a test
// actually exercised the error path it intended to.
type ChaosStats struct {
	OpenFails     int64
	ReadFails     int64
	WriteFails    int64
	SyncFails     int64
	MkdirAllFails int64
	RemoveFails   int64
	StatFails     int64
}

// Chaos wraps an [FS] and injects random failures for testing.
//
// Chaos never injects ENOENT (absence comes from the wrapped FS) and never
// injects EINTR. It is a fault-injecting passthrough, not a filesystem
// simulator: every successful call is forwarded verbatim to the underlying
// FS.
type Chaos struct {
	fs     FS
	rng    *rand.Rand
	rngMu  sync.Mutex
	config ChaosConfig

	openFails     atomic.Int64
	readFails     atomic.Int64
	writeFails    atomic.Int64
	syncFails     atomic.Int64
	mkdirAllFails atomic.Int64
	removeFails   atomic.Int64
	statFails     atomic.Int64
}

// NewChaos creates a [Chaos] filesystem wrapping underlying, seeded for
// reproducible fault sequences. Panics if underlying is nil.
func NewChaos(underlying FS, seed int64, config ChaosConfig) *Chaos {
	if underlying == nil {
		panic("fs: NewChaos: underlying FS is nil")
	}

	return &Chaos{fs: underlying, rng: rand.New(rand.NewSource(seed)), config: config} //nolint:gosec
}

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		OpenFails:     c.openFails.Load(),
		ReadFails:     c.readFails.Load(),
		WriteFails:    c.writeFails.Load(),
		SyncFails:     c.syncFails.Load(),
		MkdirAllFails: c.mkdirAllFails.Load(),
		RemoveFails:   c.removeFails.Load(),
		StatFails:     c.statFails.Load(),
	}
}

func (c *Chaos) should(rate float64) bool {
	if rate <= 0 {
		return false
	}

	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.Float64() < rate
}

func pathError(op, path string, errno syscall.Errno) error {
	return &ChaosError{Err: &fs.PathError{Op: op, Path: path, Err: errno}}
}

func (c *Chaos) Open(path string) (File, error) {
	return c.openWithChaos(path, "open", func() (File, error) { return c.fs.Open(path) })
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	op := "open"
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		op = "create"
	}

	return c.openWithChaos(path, op, func() (File, error) { return c.fs.OpenFile(path, flag, perm) })
}

func (c *Chaos) openWithChaos(path, op string, openFn func() (File, error)) (File, error) {
	if c.should(c.config.OpenFailRate) {
		c.openFails.Add(1)

		errno := syscall.EIO
		if op == "create" {
			errno = syscall.ENOSPC
		}

		return nil, pathError(op, path, errno)
	}

	f, err := openFn()
	if err != nil {
		return nil, err
	}

	return &chaosFile{f: f, chaos: c, path: path}, nil
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if c.should(c.config.MkdirAllFailRate) {
		c.mkdirAllFails.Add(1)

		return pathError("mkdirall", path, syscall.EIO)
	}

	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	return c.fs.ReadDir(path)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if c.should(c.config.StatFailRate) {
		c.statFails.Add(1)

		return nil, pathError("stat", path, syscall.EIO)
	}

	return c.fs.Stat(path)
}

func (c *Chaos) Exists(path string) (bool, error) {
	if c.should(c.config.StatFailRate) {
		c.statFails.Add(1)

		return false, pathError("stat", path, syscall.EIO)
	}

	return c.fs.Exists(path)
}

func (c *Chaos) Remove(path string) error {
	if c.should(c.config.RemoveFailRate) {
		c.removeFails.Add(1)

		return pathError("remove", path, syscall.EBUSY)
	}

	return c.fs.Remove(path)
}

func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if c.should(c.config.WriteFailRate) {
		c.writeFails.Add(1)

		return pathError("write", path, syscall.ENOSPC)
	}

	return c.fs.WriteFileAtomic(path, data, perm)
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)

// chaosFile wraps a [File] so reads/writes/syncs can be injected once open.
type chaosFile struct {
	f     File
	chaos *Chaos
	path  string
}

func (f *chaosFile) Read(p []byte) (int, error) {
	if f.chaos.should(f.chaos.config.ReadFailRate) {
		f.chaos.readFails.Add(1)

		return 0, pathError("read", f.path, syscall.EIO)
	}

	return f.f.Read(p)
}

func (f *chaosFile) Write(p []byte) (int, error) {
	if f.chaos.should(f.chaos.config.WriteFailRate) {
		f.chaos.writeFails.Add(1)

		return 0, pathError("write", f.path, syscall.ENOSPC)
	}

	return f.f.Write(p)
}

func (f *chaosFile) Seek(offset int64, whence int) (int64, error) {
	return f.f.Seek(offset, whence)
}

func (f *chaosFile) Close() error {
	return f.f.Close()
}

func (f *chaosFile) Fd() uintptr {
	return f.f.Fd()
}

func (f *chaosFile) Stat() (os.FileInfo, error) {
	return f.f.Stat()
}

func (f *chaosFile) Sync() error {
	if f.chaos.should(f.chaos.config.SyncFailRate) {
		f.chaos.syncFails.Add(1)

		return pathError("sync", f.path, syscall.EIO)
	}

	return f.f.Sync()
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
func IsChaosErr(err error) bool {
	var ce *ChaosError

	return errors.As(err, &ce)
}

var _ io.ReadWriteCloser = (*chaosFile)(nil)
