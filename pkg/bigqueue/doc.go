// Package bigqueue provides a persistent, unbounded FIFO byte queue backed
// by memory-mapped arena files.
//
// Records are pushed and popped in strict order. The queue grows by
// allocating new fixed-size arena files on demand rather than enforcing a
// capacity limit, and survives process restarts by persisting its head and
// tail cursors to a small index file after every mutating operation.
//
// # Basic Usage
//
//	q, err := bigqueue.Open("/var/lib/myapp/queue", false)
//	if err != nil {
//	    // handle [ErrIsDir]/[ErrExist]
//	}
//	defer q.Close()
//
//	q.Push([]byte("hello"))
//	data, err := q.Pop() // data == []byte("hello")
//
// # Concurrency
//
// A [Queue] opened directly is not safe for concurrent use: every method
// must be serialized by the caller. [Channel] splits one Queue into a
// [Sender] and a [Receiver] that may run on two separate goroutines under a
// single-producer/single-consumer discipline — see the Channel doc comment.
//
// # Error Handling
//
// Validation errors ([ErrIsDir], [ErrExist]) and normal end-of-queue
// signaling ([ErrQueueEmpty]) are returned to the caller and expected to be
// handled. The queue is not crash-consistent: the index is updated without
// an fsync discipline, so after an ungraceful shutdown the recovered cursors
// may lag the last record actually durable on disk.
//
// Internal invariant violations — an arena file missing during a head page
// flip, or a freshly created tail arena that cannot be mapped — panic
// rather than returning an error. Both indicate the queue's own bookkeeping
// is broken, not a condition a caller can usefully recover from.
package bigqueue
