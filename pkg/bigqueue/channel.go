package bigqueue

import "sync"

// Channel opens a single Queue at dir and splits it into a producer-side
// Sender and a consumer-side Receiver. The Sender may only push; the
// Receiver may only dequeue. Both handles may be driven from separate
// goroutines under a single-producer/single-consumer discipline: the
// producer mutates only the tail cursor and the tail side of the arena
// cache, the consumer mutates only the head cursor and the head side of the
// cache, and the cache itself is guarded by the Queue's own mutex since it
// is the one piece of state both sides touch.
//
// Peek is intentionally not exposed on either handle.
func Channel(dir string, reset bool) (*Sender, *Receiver, error) {
	q, err := Open(dir, reset)
	if err != nil {
		return nil, nil, err
	}

	closer := &sharedCloser{q: q}

	return &Sender{q: q, closer: closer}, &Receiver{q: q, closer: closer}, nil
}

// sharedCloser lets either endpoint close the underlying Queue exactly
// once, whichever side shuts down first.
type sharedCloser struct {
	q    *Queue
	once sync.Once
	err  error
}

func (c *sharedCloser) Close() error {
	c.once.Do(func() { c.err = c.q.Close() })

	return c.err
}

// Sender is the producer half of a Channel. It may only be used from one
// goroutine at a time.
type Sender struct {
	q      *Queue
	closer *sharedCloser
}

// Enqueue pushes data onto the underlying queue.
func (s *Sender) Enqueue(data []byte) error {
	return s.q.Push(data)
}

// Close closes the underlying queue. Only the side that calls Close first
// actually unmaps and shrinks; the other side's Close observes the same
// result.
func (s *Sender) Close() error {
	return s.closer.Close()
}

// Receiver is the consumer half of a Channel. It may only be used from one
// goroutine at a time.
type Receiver struct {
	q      *Queue
	closer *sharedCloser
}

// Dequeue consumes the next record without materializing its payload.
func (r *Receiver) Dequeue() error {
	return r.q.Dequeue()
}

// Close closes the underlying queue. See [Sender.Close].
func (r *Receiver) Close() error {
	return r.closer.Close()
}
