package codec_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/codec"
)

func Test_WriteUint64_Then_ReadUint64_Round_Trips(t *testing.T) {
	t.Parallel()

	region := make([]byte, 32)

	if err := codec.WriteUint64(region, 8, 0xDEADBEEFCAFEF00D); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}

	got, err := codec.ReadUint64(region, 8)
	if err != nil {
		t.Fatalf("ReadUint64: %v", err)
	}

	if got != 0xDEADBEEFCAFEF00D {
		t.Fatalf("ReadUint64 = %#x, want %#x", got, uint64(0xDEADBEEFCAFEF00D))
	}
}

func Test_WriteUint64_Is_Little_Endian_On_The_Wire(t *testing.T) {
	t.Parallel()

	region := make([]byte, 8)

	if err := codec.WriteUint64(region, 0, 1); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}

	want := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, region); diff != "" {
		t.Fatalf("region mismatch (-want +got):\n%s", diff)
	}
}

func Test_ReadUint64_Rejects_Offsets_That_Would_Read_Out_Of_Range(t *testing.T) {
	t.Parallel()

	region := make([]byte, 8)

	_, err := codec.ReadUint64(region, 1)
	if !errors.Is(err, codec.ErrOutOfRange) {
		t.Fatalf("ReadUint64(offset=1): err = %v, want ErrOutOfRange", err)
	}

	_, err = codec.ReadUint64(region, -1)
	if !errors.Is(err, codec.ErrOutOfRange) {
		t.Fatalf("ReadUint64(offset=-1): err = %v, want ErrOutOfRange", err)
	}
}

func Test_WriteBytes_Then_ReadBytes_Round_Trips_And_Does_Not_Alias_Region(t *testing.T) {
	t.Parallel()

	region := make([]byte, 16)
	payload := []byte("hello world")

	if err := codec.WriteBytes(region, 2, payload); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	got, err := codec.ReadBytes(region, 2, int64(len(payload)))
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}

	if diff := cmp.Diff(payload, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	// Mutating region must not affect the returned buffer.
	region[2] = 'X'
	if got[0] == 'X' {
		t.Fatalf("ReadBytes aliased the source region")
	}
}

func Test_ReadBytes_Rejects_Lengths_That_Would_Read_Out_Of_Range(t *testing.T) {
	t.Parallel()

	region := make([]byte, 8)

	_, err := codec.ReadBytes(region, 4, 8)
	if !errors.Is(err, codec.ErrOutOfRange) {
		t.Fatalf("ReadBytes: err = %v, want ErrOutOfRange", err)
	}
}

func Test_WriteBytes_Rejects_Writes_That_Would_Overflow_Region(t *testing.T) {
	t.Parallel()

	region := make([]byte, 4)

	err := codec.WriteBytes(region, 0, []byte("too long"))
	if !errors.Is(err, codec.ErrOutOfRange) {
		t.Fatalf("WriteBytes: err = %v, want ErrOutOfRange", err)
	}
}

// FuzzWriteBytes_Then_ReadBytes_Round_Trips exercises the record-framing
// codec directly with arbitrary region sizes, offsets, and payloads: any
// write that ErrOutOfRange rejects must leave the region untouched, and any
// write that succeeds must read back byte-identical.
func FuzzWriteBytes_Then_ReadBytes_Round_Trips(f *testing.F) {
	f.Add(int64(16), int64(2), []byte("hello world"))
	f.Add(int64(8), int64(0), []byte{})
	f.Add(int64(8), int64(8), []byte{0x01})
	f.Add(int64(1), int64(-1), []byte{0x00})

	f.Fuzz(func(t *testing.T, regionSize, offset int64, payload []byte) {
		if regionSize < 0 || regionSize > 1<<20 {
			t.Skip("region size out of the range this codec is used with")
		}

		region := make([]byte, regionSize)
		before := append([]byte(nil), region...)

		err := codec.WriteBytes(region, offset, payload)
		if err != nil {
			if !errors.Is(err, codec.ErrOutOfRange) {
				t.Fatalf("WriteBytes: unexpected error kind: %v", err)
			}

			if diff := cmp.Diff(before, region); diff != "" {
				t.Fatalf("WriteBytes left the region mutated despite failing (-before +after):\n%s", diff)
			}

			return
		}

		got, err := codec.ReadBytes(region, offset, int64(len(payload)))
		if err != nil {
			t.Fatalf("ReadBytes after a successful WriteBytes: %v", err)
		}

		if diff := cmp.Diff(payload, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
		}
	})
}
