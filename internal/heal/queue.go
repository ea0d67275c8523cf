package heal

import (
	"sync"

	"github.com/stripefs/stripefs/internal/common"
)

// Queue is the pending-job queue fed by the fanout engine's lookup and
// create handlers (spec §4.5), drained by a background Worker.
type Queue struct {
	mu    sync.Mutex
	inner common.Queue[Job]
}

func NewQueue() *Queue {
	return &Queue{inner: common.NewLinkedListQueue[Job]()}
}

// Schedule enqueues j for a future heal sweep. Never blocks and never
// returns an error: scheduling failures are not on the critical path of
// any caller-visible fop (spec §4.5 "Best-effort").
func (q *Queue) Schedule(j Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inner.Push(j)
}

// Pop removes and returns the oldest pending job, if any.
func (q *Queue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inner.IsEmpty() {
		return Job{}, false
	}
	return q.inner.Pop(), true
}

// Len reports the number of pending jobs, for tests and diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inner.Len()
}
