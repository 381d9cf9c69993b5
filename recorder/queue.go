package recorder

import "sync"

// queueEntry is a tagged union: either a segment to process or the
// shutdown marker pushed once after the final flush.
type queueEntry struct {
	Segment  *PendingSegment
	Shutdown bool
}

// segmentQueue is an unbounded FIFO with a blocking Pop. The producer
// side never blocks on Push, the worker side parks on a condition
// variable instead of polling.
type segmentQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []queueEntry
}

func newSegmentQueue() *segmentQueue {
	q := &segmentQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *segmentQueue) Push(e queueEntry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an entry is available and returns the oldest one.
func (q *segmentQueue) Pop() queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.entries) == 0 {
		q.cond.Wait()
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e
}

// TryPop returns the oldest entry without blocking.
func (q *segmentQueue) TryPop() (queueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return queueEntry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *segmentQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
