package core

import (
	"time"

	pq "github.com/kyroy/priority-queue"
)

// boundedQueue is a timestamp-ordered FIFO bounded at capacity items,
// backed by github.com/kyroy/priority-queue with priority = arrival
// timestamp (earliest first). Replaces the teacher's unbounded
// map[time.Time][]IMUData synchronizer (internal/synchronization.go)
// with a capacity-limited structure, per §5's "bounded FIFO" requirement.
type boundedQueue struct {
	q    *pq.PriorityQueue
	cap  int
	size int
}

func newBoundedQueue(capacity int) *boundedQueue {
	return &boundedQueue{q: pq.NewPriorityQueue(), cap: capacity}
}

// push enqueues value under timestamp ts, dropping the oldest entry
// first if the queue is already at capacity.
func (b *boundedQueue) push(ts time.Time, value interface{}) {
	if b.size >= b.cap {
		b.q.PopLowest()
		b.size--
	}
	b.q.Insert(value, float64(ts.UnixNano()))
	b.size++
}

func (b *boundedQueue) pop() (interface{}, bool) {
	item := b.q.PopLowest()
	if item == nil {
		return nil, false
	}
	b.size--
	return item.Value, true
}

func (b *boundedQueue) clear() {
	for b.size > 0 {
		b.q.PopLowest()
		b.size--
	}
}

func (b *boundedQueue) len() int { return b.size }
