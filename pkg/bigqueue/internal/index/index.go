// Package index wraps a tiny 32-byte memory-mapped arena holding the four
// cursor words that describe a bigqueue's logical state.
package index

import (
	"github.com/arenafile/bigqueue/internal/fs"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/arena"
)

// FileSize is the fixed size in bytes of index.dat: four little-endian u64
// words at offsets 0, 8, 16, 24.
const FileSize = 32

// Window slot assignments within the index file.
const (
	headAidWindow = iota
	headOffsetWindow
	tailAidWindow
	tailOffsetWindow
)

// Index is a thin wrapper around an [arena.Arena] of [FileSize] bytes,
// addressed via its window accessors. A freshly created index.dat is
// zero-filled by arena.Open's ftruncate, so a brand new Index reports
// (0, 0) for both the head and tail tuple — an empty queue at arena 0,
// offset 0.
type Index struct {
	arena *arena.Arena
}

// Open opens (creating if absent, zero-initialized) the index file at path.
func Open(fsys fs.FS, path string) (*Index, error) {
	a, err := arena.Open(fsys, path, FileSize)
	if err != nil {
		return nil, err
	}

	return &Index{arena: a}, nil
}

// HeadTuple returns the (head_aid, head_offset) pair — where the next
// record would be read.
func (idx *Index) HeadTuple() (aid, offset uint64, err error) {
	aid, err = idx.arena.ReadUint64AtWindow(headAidWindow)
	if err != nil {
		return 0, 0, err
	}

	offset, err = idx.arena.ReadUint64AtWindow(headOffsetWindow)
	if err != nil {
		return 0, 0, err
	}

	return aid, offset, nil
}

// SetHead persists the (head_aid, head_offset) pair. Write failures are
// propagated to the caller — unlike Flush, a failed SetHead is not
// swallowed, since it means the durable record of where the consumer is
// did not advance.
func (idx *Index) SetHead(aid, offset uint64) error {
	if err := idx.arena.WriteUint64AtWindow(headAidWindow, aid); err != nil {
		return err
	}

	return idx.arena.WriteUint64AtWindow(headOffsetWindow, offset)
}

// TailTuple returns the (tail_aid, tail_offset) pair — where the next
// record would be written.
func (idx *Index) TailTuple() (aid, offset uint64, err error) {
	aid, err = idx.arena.ReadUint64AtWindow(tailAidWindow)
	if err != nil {
		return 0, 0, err
	}

	offset, err = idx.arena.ReadUint64AtWindow(tailOffsetWindow)
	if err != nil {
		return 0, 0, err
	}

	return aid, offset, nil
}

// SetTail persists the (tail_aid, tail_offset) pair. See SetHead for the
// error-propagation rationale.
func (idx *Index) SetTail(aid, offset uint64) error {
	if err := idx.arena.WriteUint64AtWindow(tailAidWindow, aid); err != nil {
		return err
	}

	return idx.arena.WriteUint64AtWindow(tailOffsetWindow, offset)
}

// Flush is best-effort; see [arena.Arena.Flush].
func (idx *Index) Flush() {
	idx.arena.Flush()
}

// Close unmaps and closes the index file.
func (idx *Index) Close() error {
	return idx.arena.Close()
}
