package bigqueue

import "errors"

// Error classification codes.
//
// Implementations may wrap these with additional context via fmt.Errorf's
// %w. Callers should classify errors using errors.Is.
var (
	// ErrIsDir indicates the target path exists but is not a writable
	// directory.
	ErrIsDir = errors.New("bigqueue: not a writable directory")

	// ErrExist indicates the queue directory itself does not exist. It is
	// a validation error returned from Open, not a signal that anything
	// internal to an already-open queue is broken: a missing arena file
	// discovered after Open succeeded is an invariant violation and
	// panics instead (see flipHeadPageTo).
	ErrExist = errors.New("bigqueue: expected path does not exist")

	// ErrOpenFileWithLength indicates a backing file could not be
	// extended to its required length.
	ErrOpenFileWithLength = errors.New("bigqueue: could not size file")

	// ErrIo wraps an underlying filesystem error whose cause is
	// preserved via %w.
	ErrIo = errors.New("bigqueue: io error")

	// ErrQueueEmpty is returned by Peek, Pop, and Dequeue when
	// head == tail at the time of the call. It is a normal signal, not a
	// failure.
	ErrQueueEmpty = errors.New("bigqueue: queue is empty")

	// ErrReadLength indicates the 8-byte length frame could not be read.
	ErrReadLength = errors.New("bigqueue: could not read length frame")

	// ErrRead indicates payload bytes could not be read (out-of-range
	// mapping).
	ErrRead = errors.New("bigqueue: could not read payload")

	// ErrWrite indicates bytes could not be written at the requested
	// offset.
	ErrWrite = errors.New("bigqueue: could not write")
)
