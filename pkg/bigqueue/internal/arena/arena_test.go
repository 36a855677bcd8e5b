package arena_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/arenafile/bigqueue/internal/fs"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/arena"
)

func Test_Open_Creates_File_Of_Exactly_The_Requested_Size(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "arena_0.dat")

	a, err := arena.Open(fs.NewReal(), path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.Size() != 64 {
		t.Fatalf("Size() = %d, want 64", a.Size())
	}
}

func Test_WriteUint64At_Then_ReadUint64At_Round_Trips(t *testing.T) {
	t.Parallel()

	a, err := arena.Open(fs.NewReal(), filepath.Join(t.TempDir(), "arena_0.dat"), 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.WriteUint64At(16, 42); err != nil {
		t.Fatalf("WriteUint64At: %v", err)
	}

	got, err := a.ReadUint64At(16)
	if err != nil {
		t.Fatalf("ReadUint64At: %v", err)
	}

	if got != 42 {
		t.Fatalf("ReadUint64At = %d, want 42", got)
	}
}

func Test_Window_Accessors_Address_The_Kth_Eight_Byte_Slot(t *testing.T) {
	t.Parallel()

	a, err := arena.Open(fs.NewReal(), filepath.Join(t.TempDir(), "arena_0.dat"), 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.WriteUint64AtWindow(2, 7); err != nil {
		t.Fatalf("WriteUint64AtWindow: %v", err)
	}

	direct, err := a.ReadUint64At(16)
	if err != nil {
		t.Fatalf("ReadUint64At: %v", err)
	}

	if direct != 7 {
		t.Fatalf("window 2 should alias offset 16, got %d", direct)
	}
}

func Test_WriteBytesAt_Then_ReadBytesAt_Round_Trips(t *testing.T) {
	t.Parallel()

	a, err := arena.Open(fs.NewReal(), filepath.Join(t.TempDir(), "arena_0.dat"), 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	payload := []byte("queued-bytes")
	if err := a.WriteBytesAt(4, payload); err != nil {
		t.Fatalf("WriteBytesAt: %v", err)
	}

	got, err := a.ReadBytesAt(4, int64(len(payload)))
	if err != nil {
		t.Fatalf("ReadBytesAt: %v", err)
	}

	if string(got) != string(payload) {
		t.Fatalf("ReadBytesAt = %q, want %q", got, payload)
	}
}

func Test_Accessors_Reject_Offsets_Outside_The_Mapped_Region(t *testing.T) {
	t.Parallel()

	a, err := arena.Open(fs.NewReal(), filepath.Join(t.TempDir(), "arena_0.dat"), 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	_, err = a.ReadUint64At(12)
	if !errors.Is(err, arena.ErrOutOfRange) {
		t.Fatalf("ReadUint64At(12) on 16-byte arena: err = %v, want ErrOutOfRange", err)
	}
}

func Test_Open_Returns_ErrOpen_When_The_File_Cannot_Be_Opened(t *testing.T) {
	t.Parallel()

	chaos := fs.NewChaos(fs.NewReal(), 9, fs.ChaosConfig{OpenFailRate: 1.0})

	_, err := arena.Open(chaos, filepath.Join(t.TempDir(), "arena_0.dat"), 16)
	if !errors.Is(err, arena.ErrOpen) {
		t.Fatalf("Open: err = %v, want ErrOpen", err)
	}
}

func Test_Close_Is_Safe_After_Flush(t *testing.T) {
	t.Parallel()

	a, err := arena.Open(fs.NewReal(), filepath.Join(t.TempDir(), "arena_0.dat"), 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	a.Flush()

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
