// Package bigqueue implements a persistent, unbounded, single-process FIFO
// byte-message queue backed by memory-mapped arena files.
//
// A queue is a directory containing a 32-byte index.dat and a growing
// sequence of fixed-size arena_<N>.dat files. Push appends a length-prefixed
// frame at the tail; Pop/Dequeue consume frames from the head in the same
// order they were pushed. See doc.go for the full package overview.
package bigqueue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/arenafile/bigqueue/internal/fs"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/arena"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/arenacache"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/codec"
	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/index"
)

const indexFileName = "index.dat"

var arenaFilePattern = regexp.MustCompile(`^arena_(\d+)\.dat$`)

// Queue is the FIFO state machine over a directory of arena files.
//
// Queue is not safe for concurrent use by itself: all method calls must be
// serialized by the caller. [Channel] splits a Queue's head and tail state
// into two handles that may safely be driven from separate goroutines under
// the single-producer/single-consumer discipline documented there.
type Queue struct {
	fsys   fs.FS
	dir    string
	config Config
	idx    *index.Index

	cache   *arenacache.Cache
	cacheMu sync.Mutex

	headAid, headOffset uint64
	qHead               *arena.Arena

	tailAid, tailOffset uint64
	qTail               *arena.Arena
}

// Open opens (or creates) the queue directory at dir using [DefaultConfig].
// If reset is true, every existing *.dat file in dir (the arenas and the
// index included) is discarded first.
func Open(dir string, reset bool) (*Queue, error) {
	return OpenWithConfig(dir, reset, DefaultConfig())
}

// OpenWithConfig is Open with an explicit [Config].
func OpenWithConfig(dir string, reset bool, config Config) (*Queue, error) {
	return openWithConfig(fs.NewReal(), dir, reset, config)
}

func openWithConfig(fsys fs.FS, dir string, reset bool, config Config) (*Queue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	info, err := fsys.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrExist, dir, err)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrIsDir, dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrIsDir, dir)
	}

	if err := unix.Access(dir, unix.W_OK); err != nil {
		return nil, fmt.Errorf("%w: %s is not writable: %w", ErrIsDir, dir, err)
	}

	if reset {
		if err := removeArenaFiles(fsys, dir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIo, err)
		}
	}

	idx, err := index.Open(fsys, filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, translateArenaErr(err)
	}

	hAid, hOffset, err := idx.HeadTuple()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	tAid, tOffset, err := idx.TailTuple()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	q := &Queue{
		fsys:       fsys,
		dir:        dir,
		config:     config,
		idx:        idx,
		cache:      arenacache.New(config.MaxArenasInMem),
		headAid:    hAid,
		headOffset: hOffset,
		tailAid:    tAid,
		tailOffset: tOffset,
	}

	qTail, err := arena.Open(fsys, q.arenaPath(tAid), config.ArenaSize)
	if err != nil {
		_ = idx.Close()

		return nil, translateArenaErr(err)
	}

	q.qTail = qTail

	if hAid == tAid {
		q.qHead = qTail
	} else {
		exists, err := fsys.Exists(q.arenaPath(hAid))
		if err != nil {
			_ = qTail.Close()
			_ = idx.Close()

			return nil, fmt.Errorf("%w: %w", ErrIo, err)
		}

		if !exists {
			_ = qTail.Close()
			_ = idx.Close()

			panic(fmt.Sprintf("bigqueue: index names head arena %d but %s does not exist", hAid, q.arenaPath(hAid)))
		}

		qHead, err := arena.Open(fsys, q.arenaPath(hAid), config.ArenaSize)
		if err != nil {
			_ = qTail.Close()
			_ = idx.Close()

			return nil, translateArenaErr(err)
		}

		q.qHead = qHead
	}

	return q, nil
}

func removeArenaFiles(fsys fs.FS, dir string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && filepath.Ext(name) == ".dat" {
			if err := fsys.Remove(filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}

	return nil
}

func translateArenaErr(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, arena.ErrSetLength):
		return fmt.Errorf("%w: %w", ErrOpenFileWithLength, err)
	default:
		return fmt.Errorf("%w: %w", ErrIo, err)
	}
}

func (q *Queue) arenaPath(aid uint64) string {
	return filepath.Join(q.dir, fmt.Sprintf("arena_%d.dat", aid))
}

// IsEmpty reports whether the queue currently holds no records.
func (q *Queue) IsEmpty() bool {
	return q.headAid == q.tailAid && q.headOffset == q.tailOffset
}

// Push appends data as a new record at the tail of the queue.
func (q *Queue) Push(data []byte) error {
	length := uint64(len(data))

	if err := q.writeLengthAtTail(length); err != nil {
		return err
	}

	if err := q.writePayloadAtTail(data); err != nil {
		return err
	}

	if err := q.idx.SetTail(q.tailAid, q.tailOffset); err != nil {
		return fmt.Errorf("%w: persist tail: %w", ErrWrite, err)
	}

	return nil
}

func (q *Queue) writeLengthAtTail(length uint64) error {
	arenaSize := uint64(q.config.ArenaSize)

	if q.tailOffset+codec.Uint64Size > arenaSize {
		if err := q.flipTailForward(); err != nil {
			return err
		}
	}

	if err := q.qTail.WriteUint64At(int64(q.tailOffset), length); err != nil {
		return fmt.Errorf("%w: length: %w", ErrWrite, err)
	}

	q.tailOffset += codec.Uint64Size

	if q.tailOffset == arenaSize {
		return q.flipTailForward()
	}

	return nil
}

func (q *Queue) writePayloadAtTail(data []byte) error {
	arenaSize := uint64(q.config.ArenaSize)
	remaining := data

	for len(remaining) > 0 {
		space := arenaSize - q.tailOffset
		n := uint64(len(remaining))

		if n > space {
			n = space
		}

		if err := q.qTail.WriteBytesAt(int64(q.tailOffset), remaining[:n]); err != nil {
			return fmt.Errorf("%w: payload: %w", ErrWrite, err)
		}

		remaining = remaining[n:]
		q.tailOffset += n

		if q.tailOffset == arenaSize {
			if err := q.flipTailForward(); err != nil {
				return err
			}
		}
	}

	return nil
}

// flipTailForward rolls the tail cursor from the end of the current arena
// into a fresh arena at tailAid+1, handing the old tail arena to the cache
// unless it is also the currently shared head arena. A failure mapping the
// freshly created tail arena panics rather than propagating, matching the
// original implementation's treatment of this path as unrecoverable.
func (q *Queue) flipTailForward() error {
	oldAid := q.tailAid
	oldTail := q.qTail

	next, err := arena.Open(q.fsys, q.arenaPath(oldAid+1), q.config.ArenaSize)
	if err != nil {
		panic(fmt.Sprintf("bigqueue: failed to map freshly created tail arena %s: %v", q.arenaPath(oldAid+1), err))
	}

	if oldTail != q.qHead {
		q.cacheMu.Lock()
		_ = q.cache.Put(oldAid, oldTail) // eviction-close errors are best-effort
		q.cacheMu.Unlock()
	}

	q.tailAid = oldAid + 1
	q.tailOffset = 0
	q.qTail = next

	return nil
}

// flipHeadPageTo moves the head cursor to the start of arena aid, reusing a
// cached mapping when available and mapping fresh from disk otherwise. The
// ring never wraps, so every aid in [head_aid, tail_aid] must exist on disk;
// a missing arena file here means the engine's own bookkeeping is broken,
// not a recoverable caller error, so it panics.
func (q *Queue) flipHeadPageTo(aid uint64) error {
	q.cacheMu.Lock()
	cached, ok := q.cache.Take(aid)
	q.cacheMu.Unlock()

	var next *arena.Arena

	if ok {
		next = cached
	} else {
		path := q.arenaPath(aid)

		exists, err := q.fsys.Exists(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIo, err)
		}

		if !exists {
			panic(fmt.Sprintf("bigqueue: arena file missing during head flip forward: %s", path))
		}

		a, err := arena.Open(q.fsys, path, q.config.ArenaSize)
		if err != nil {
			return translateArenaErr(err)
		}

		next = a
	}

	old := q.qHead
	q.qHead = next
	q.headAid = aid
	q.headOffset = 0

	if old != q.qTail {
		return old.Close()
	}

	return nil
}

func (q *Queue) readLengthAtHead() (uint64, error) {
	arenaSize := uint64(q.config.ArenaSize)

	if q.headOffset+codec.Uint64Size > arenaSize {
		if err := q.flipHeadPageTo(q.headAid + 1); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrReadLength, err)
		}
	}

	length, err := q.qHead.ReadUint64At(int64(q.headOffset))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadLength, err)
	}

	q.headOffset += codec.Uint64Size

	if q.headOffset == arenaSize {
		if err := q.flipHeadPageTo(q.headAid + 1); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrReadLength, err)
		}
	}

	return length, nil
}

func (q *Queue) readPayloadAtHead(length uint64) ([]byte, error) {
	arenaSize := uint64(q.config.ArenaSize)
	buf := make([]byte, 0, length)
	remaining := length

	for remaining > 0 {
		space := arenaSize - q.headOffset
		n := remaining

		if n > space {
			n = space
		}

		chunk, err := q.qHead.ReadBytesAt(int64(q.headOffset), int64(n))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}

		buf = append(buf, chunk...)
		q.headOffset += n
		remaining -= n

		if q.headOffset == arenaSize {
			if err := q.flipHeadPageTo(q.headAid + 1); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrRead, err)
			}
		}
	}

	return buf, nil
}

func (q *Queue) skipPayloadAtHead(length uint64) error {
	arenaSize := uint64(q.config.ArenaSize)
	remaining := length

	for remaining > 0 {
		space := arenaSize - q.headOffset
		n := remaining

		if n > space {
			n = space
		}

		q.headOffset += n
		remaining -= n

		if q.headOffset == arenaSize {
			if err := q.flipHeadPageTo(q.headAid + 1); err != nil {
				return fmt.Errorf("%w: %w", ErrRead, err)
			}
		}
	}

	return nil
}

// Peek returns the bytes of the next record without consuming it. Peek does
// not mutate head state or touch the arena cache: it walks the frame using
// an independent cursor, opening any intermediate arena fresh from disk and
// closing it again before returning, so repeated peeks are idempotent and
// never disturb what Pop/Dequeue would later see.
func (q *Queue) Peek() ([]byte, error) {
	if q.IsEmpty() {
		return nil, ErrQueueEmpty
	}

	p := &peekCursor{q: q, aid: q.headAid, offset: q.headOffset, cur: q.qHead}
	defer p.closeOpened()

	length, err := p.readLength()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadLength, err)
	}

	return p.readPayload(length)
}

// peekCursor walks arena frames for Peek without mutating Queue head state.
type peekCursor struct {
	q      *Queue
	aid    uint64
	offset uint64
	cur    *arena.Arena
	opened []*arena.Arena
}

func (p *peekCursor) closeOpened() {
	for _, a := range p.opened {
		_ = a.Close()
	}
}

// advance moves the cursor to the start of the next arena without touching
// the Queue's cache or head state. A missing arena file here indicates the
// same broken bookkeeping flipHeadPageTo guards against, so it panics too.
func (p *peekCursor) advance() error {
	nextAid := p.aid + 1

	if nextAid == p.q.tailAid {
		p.cur = p.q.qTail
		p.aid = nextAid
		p.offset = 0

		return nil
	}

	path := p.q.arenaPath(nextAid)

	exists, err := p.q.fsys.Exists(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIo, err)
	}

	if !exists {
		panic(fmt.Sprintf("bigqueue: arena file missing during head flip forward: %s", path))
	}

	a, err := arena.Open(p.q.fsys, path, p.q.config.ArenaSize)
	if err != nil {
		return translateArenaErr(err)
	}

	p.opened = append(p.opened, a)
	p.cur = a
	p.aid = nextAid
	p.offset = 0

	return nil
}

func (p *peekCursor) readLength() (uint64, error) {
	arenaSize := uint64(p.q.config.ArenaSize)

	if p.offset+codec.Uint64Size > arenaSize {
		if err := p.advance(); err != nil {
			return 0, err
		}
	}

	length, err := p.cur.ReadUint64At(int64(p.offset))
	if err != nil {
		return 0, err
	}

	p.offset += codec.Uint64Size

	if p.offset == arenaSize {
		if err := p.advance(); err != nil {
			return 0, err
		}
	}

	return length, nil
}

func (p *peekCursor) readPayload(length uint64) ([]byte, error) {
	arenaSize := uint64(p.q.config.ArenaSize)
	buf := make([]byte, 0, length)
	remaining := length

	for remaining > 0 {
		space := arenaSize - p.offset
		n := remaining

		if n > space {
			n = space
		}

		chunk, err := p.cur.ReadBytesAt(int64(p.offset), int64(n))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}

		buf = append(buf, chunk...)
		p.offset += n
		remaining -= n

		if p.offset == arenaSize && remaining > 0 {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	return buf, nil
}

// Pop removes and returns the bytes of the next record.
func (q *Queue) Pop() ([]byte, error) {
	if q.IsEmpty() {
		return nil, ErrQueueEmpty
	}

	length, err := q.readLengthAtHead()
	if err != nil {
		return nil, err
	}

	data, err := q.readPayloadAtHead(length)
	if err != nil {
		return nil, err
	}

	if err := q.idx.SetHead(q.headAid, q.headOffset); err != nil {
		return nil, fmt.Errorf("%w: persist head: %w", ErrWrite, err)
	}

	return data, nil
}

// Dequeue removes the next record without materializing its payload.
func (q *Queue) Dequeue() error {
	if q.IsEmpty() {
		return ErrQueueEmpty
	}

	length, err := q.readLengthAtHead()
	if err != nil {
		return err
	}

	if err := q.skipPayloadAtHead(length); err != nil {
		return err
	}

	if err := q.idx.SetHead(q.headAid, q.headOffset); err != nil {
		return fmt.Errorf("%w: persist head: %w", ErrWrite, err)
	}

	return nil
}

// Shrink deletes every arena_<N>.dat file with N < head_aid. It is called
// automatically by Close and may also be called at any time in between.
// Errors removing individual files are swallowed: a file that could not be
// removed this time will be retried on the next Shrink.
//
// The ring of arena ids never wraps in this implementation (tail_aid is
// always >= head_aid), so there is no symmetric "wrapped" range to reclaim.
func (q *Queue) Shrink() {
	entries, err := q.fsys.ReadDir(q.dir)
	if err != nil {
		return
	}

	for _, e := range entries {
		m := arenaFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		aid, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}

		if aid < q.headAid {
			_ = q.fsys.Remove(filepath.Join(q.dir, e.Name()))
		}
	}
}

// Close unmaps every resident arena, persists nothing further (the index is
// already up to date after every Push/Pop/Dequeue), reclaims consumed arena
// files via Shrink, and closes the index.
func (q *Queue) Close() error {
	var firstErr error

	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	q.cacheMu.Lock()
	note(q.cache.Close())
	q.cacheMu.Unlock()

	if q.qHead != q.qTail {
		note(q.qHead.Close())
	}

	note(q.qTail.Close())

	q.Shrink()

	note(q.idx.Close())

	return firstErr
}
