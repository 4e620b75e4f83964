package assoc

import (
	"errors"
	"sync"

	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// ErrQueueFull mirrors merr.ErrTooManyRequests at the queue boundary; callers
// translate it so the queue package stays decoupled from the error taxonomy.
var ErrQueueFull = errors.New("assoc: user request queue full")

// requestQueue is a bounded FIFO of pending user-initiated tasks for one
// association (spec §3 "a queue of pending user requests", §4.4 "enqueues a
// SingleRead honoring max_queued_user_requests").
type requestQueue struct {
	mu       sync.Mutex
	pending  []task.Task
	capacity int
}

func newRequestQueue(capacity int) *requestQueue {
	return &requestQueue{capacity: capacity}
}

// Enqueue appends t, or returns ErrQueueFull if the association is already
// holding `capacity` requests.
func (q *requestQueue) Enqueue(t task.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= q.capacity {
		return ErrQueueFull
	}
	q.pending = append(q.pending, t)
	return nil
}

// Pop removes and returns the oldest queued task, or (nil, false) if empty.
func (q *requestQueue) Pop() (task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	return t, true
}

// Len reports the number of queued tasks.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DrainWith removes every queued task, invoking onEach(t) for each in FIFO
// order — used to fail every pending request with Shutdown or
// AssociationRemoved (spec §5 "Cancellation").
func (q *requestQueue) DrainWith(onEach func(task.Task)) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, t := range pending {
		onEach(t)
	}
}
