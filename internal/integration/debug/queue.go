package debug

import (
	"context"
	"errors"
	"sync"
)

// ErrTrackerClosed is returned when queuing to a closed tracker.
var ErrTrackerClosed = errors.New("debug: tracker is closed")

// stopJob is a stopped event waiting for the worker.
type stopJob struct {
	threadID int
	reason   string
	hitIDs   []int
	stepped  bool
}

// stopQueue is an unbounded FIFO feeding the session's stop worker. push
// must not block: it runs on the reader goroutine that also delivers the
// responses the worker waits for.
type stopQueue struct {
	mu     sync.Mutex
	items  []stopJob
	signal chan struct{}
	done   chan struct{}
	closed bool
}

func newStopQueue() *stopQueue {
	return &stopQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (q *stopQueue) push(job stopJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrTrackerClosed
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// pop waits for the next job. It returns false once the queue is closed or
// ctx is done; queued jobs are dropped then.
func (q *stopQueue) pop(ctx context.Context) (stopJob, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return stopJob{}, false
		}
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = stopJob{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return job, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return stopJob{}, false
		case <-q.done:
			return stopJob{}, false
		case <-q.signal:
		}
	}
}

func (q *stopQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *stopQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	close(q.done)
}
