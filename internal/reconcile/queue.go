package reconcile

import (
	"sync"

	"github.com/omni3d/studio/internal/queue"
)

// Queue collects "declarative tree changed" events so reconciliation runs
// once per frame instead of re-entering mid-frame.
type Queue struct {
	mu      sync.Mutex
	pending map[string]struct{}
	order   *queue.Queue[string]
}

// NewQueue creates an empty reconciliation queue.
func NewQueue() *Queue {
	return &Queue{
		pending: make(map[string]struct{}),
		order:   queue.New[string](),
	}
}

// Enqueue marks the entity's tree as changed. Repeated events for the same
// entity before the next drain collapse into one.
func (q *Queue) Enqueue(entityID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[entityID]; ok {
		return
	}
	q.pending[entityID] = struct{}{}
	q.order.Push(entityID)
}

// Len returns the number of entities waiting.
func (q *Queue) Len() int {
	return q.order.Len()
}

// Drain hands every pending entity to fn in arrival order. Events enqueued
// by fn are kept for the next drain.
func (q *Queue) Drain(fn func(entityID string)) int {
	q.mu.Lock()
	ids := q.order.Drain()
	q.pending = make(map[string]struct{})
	q.mu.Unlock()

	for _, id := range ids {
		fn(id)
	}
	return len(ids)
}
