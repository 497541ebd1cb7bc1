package host

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueStopped is returned by Post after Stop.
var ErrQueueStopped = errors.New("host: queue stopped")

// Queue is a goroutine-confined message queue in the manner of a native
// window thread queue. Post may be called from anywhere; Pump and Run must
// only be called from the owning goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	stopped bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Post enqueues fn.
func (q *Queue) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pump runs every message queued at the time of the call, plus any queued by
// those messages, until the queue is empty. It never blocks waiting for new work.
func (q *Queue) Pump() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Wake returns a channel that receives after Post. Used by waiters that want
// to sleep between pumps instead of spinning.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Run pumps the queue until ctx is done or Stop is called.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.Pump()
		if q.isStopped() {
			q.Pump()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

// Stop rejects further posts and makes Run return after draining.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) isStopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}
