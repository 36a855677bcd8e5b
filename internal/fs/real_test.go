package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arenafile/bigqueue/internal/fs"
)

func Test_Real_Exists_Reports_True_For_Present_File_False_For_Absent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "present.dat")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := fs.NewReal()

	ok, err := r.Exists(path)
	if err != nil || !ok {
		t.Fatalf("Exists(present) = %v, %v, want true, nil", ok, err)
	}

	ok, err = r.Exists(filepath.Join(dir, "absent.dat"))
	if err != nil || ok {
		t.Fatalf("Exists(absent) = %v, %v, want false, nil", ok, err)
	}
}

func Test_Real_WriteFileAtomic_Is_Readable_Afterward(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "atomic.dat")
	r := fs.NewReal()

	if err := r.WriteFileAtomic(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "hello" {
		t.Fatalf("content = %q, want %q", got, "hello")
	}
}

func Test_Real_OpenFile_Returns_File_Usable_For_Fd_And_Stat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fd.dat")
	r := fs.NewReal()

	f, err := r.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if f.Fd() == 0 {
		t.Fatalf("Fd() = 0, want nonzero descriptor")
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if info.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", info.Size())
	}
}
