package sse

import (
	"io"
	"sync"
)

// recordQueue is the single-producer/single-consumer handoff between the
// background task and Recv. It is unbounded on purpose: the producer never
// blocks, so a slow consumer grows memory rather than stalling the socket.
type recordQueue struct {
	mu       sync.Mutex
	nonEmpty sync.Cond

	items []Event
	err   error // delivered exactly once, then the queue reads as done
	done  bool
}

func newRecordQueue() *recordQueue {
	q := &recordQueue{}
	q.nonEmpty.L = &q.mu
	return q
}

func (q *recordQueue) push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done {
		return
	}
	q.items = append(q.items, ev)
	q.nonEmpty.Signal()
}

// fail records the stream's terminal error. Records pushed before the failure
// are still delivered first.
func (q *recordQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done {
		return
	}
	q.err = err
	q.done = true
	q.nonEmpty.Signal()
}

// finish marks a clean end of stream.
func (q *recordQueue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = true
	q.nonEmpty.Signal()
}

// close ends the queue immediately, discarding undelivered records and any
// pending terminal error.
func (q *recordQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.err = nil
	q.done = true
	q.nonEmpty.Broadcast()
}

// pop blocks until a record, the terminal error, or end of stream (io.EOF)
// is available.
func (q *recordQueue) pop() (Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.done {
		q.nonEmpty.Wait()
	}

	if len(q.items) > 0 {
		ev := q.items[0]
		q.items = q.items[1:]
		return ev, nil
	}

	if q.err != nil {
		err := q.err
		q.err = nil
		return Event{}, err
	}

	return Event{}, io.EOF
}
