package index_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arenafile/bigqueue/internal/fs"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/index"
)

func Test_Open_On_Fresh_File_Reports_Zero_Head_And_Tail(t *testing.T) {
	t.Parallel()

	idx, err := index.Open(fs.NewReal(), filepath.Join(t.TempDir(), "index.dat"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	hAid, hOff, err := idx.HeadTuple()
	if err != nil {
		t.Fatalf("HeadTuple: %v", err)
	}

	if hAid != 0 || hOff != 0 {
		t.Fatalf("HeadTuple = (%d, %d), want (0, 0)", hAid, hOff)
	}

	tAid, tOff, err := idx.TailTuple()
	if err != nil {
		t.Fatalf("TailTuple: %v", err)
	}

	if tAid != 0 || tOff != 0 {
		t.Fatalf("TailTuple = (%d, %d), want (0, 0)", tAid, tOff)
	}
}

func Test_SetHead_And_SetTail_Persist_Independently(t *testing.T) {
	t.Parallel()

	idx, err := index.Open(fs.NewReal(), filepath.Join(t.TempDir(), "index.dat"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if err := idx.SetHead(3, 128); err != nil {
		t.Fatalf("SetHead: %v", err)
	}

	if err := idx.SetTail(5, 256); err != nil {
		t.Fatalf("SetTail: %v", err)
	}

	hAid, hOff, err := idx.HeadTuple()
	if err != nil || hAid != 3 || hOff != 128 {
		t.Fatalf("HeadTuple = (%d, %d, %v), want (3, 128, nil)", hAid, hOff, err)
	}

	tAid, tOff, err := idx.TailTuple()
	if err != nil || tAid != 5 || tOff != 256 {
		t.Fatalf("TailTuple = (%d, %d, %v), want (5, 256, nil)", tAid, tOff, err)
	}
}

func Test_Reopen_Recovers_Previously_Persisted_Tuples(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.dat")

	idx, err := index.Open(fs.NewReal(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := idx.SetHead(1, 64); err != nil {
		t.Fatalf("SetHead: %v", err)
	}

	if err := idx.SetTail(2, 96); err != nil {
		t.Fatalf("SetTail: %v", err)
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := index.Open(fs.NewReal(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	hAid, hOff, err := reopened.HeadTuple()
	if err != nil || hAid != 1 || hOff != 64 {
		t.Fatalf("HeadTuple after reopen = (%d, %d, %v), want (1, 64, nil)", hAid, hOff, err)
	}

	tAid, tOff, err := reopened.TailTuple()
	if err != nil || tAid != 2 || tOff != 96 {
		t.Fatalf("TailTuple after reopen = (%d, %d, %v), want (2, 96, nil)", tAid, tOff, err)
	}
}

// Test_Index_File_Layout_Matches_Spec verifies the raw byte layout of
// index.dat: four little-endian u64 words at offsets 0, 8, 16, 24.
func Test_Index_File_Layout_Matches_Spec(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.dat")

	idx, err := index.Open(fs.NewReal(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := idx.SetHead(0x0102030405060708, 0x1112131415161718); err != nil {
		t.Fatalf("SetHead: %v", err)
	}

	if err := idx.SetTail(0x2122232425262728, 0x3132333435363738); err != nil {
		t.Fatalf("SetTail: %v", err)
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}

	if len(raw) != 32 {
		t.Fatalf("index.dat size = %d, want 32", len(raw))
	}

	wantLE := func(v uint64) []byte {
		b := make([]byte, 8)
		for i := range b {
			b[i] = byte(v >> (8 * i))
		}

		return b
	}

	check := func(offset int, want uint64, label string) {
		t.Helper()

		got := raw[offset : offset+8]
		wb := wantLE(want)

		for i := range wb {
			if got[i] != wb[i] {
				t.Fatalf("%s byte %d = %#x, want %#x", label, i, got[i], wb[i])
			}
		}
	}

	check(0, 0x0102030405060708, "head_aid")
	check(8, 0x1112131415161718, "head_offset")
	check(16, 0x2122232425262728, "tail_aid")
	check(24, 0x3132333435363738, "tail_offset")
}
