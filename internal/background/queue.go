// Package background provides a bounded fire-and-forget dispatcher: a fixed
// pool of workers draining a buffered channel of closures, the same shape the
// teacher uses for its Kafka command worker pool, generalized from
// kafka.Message handlers to plain func(context.Context) jobs.
package background

import (
	"context"
	"sync/atomic"
)

// Queue runs submitted closures on a fixed-size worker pool. Submit never
// blocks the caller past the channel buffer: once full, jobs are dropped and
// counted rather than applying backpressure to the request path.
type Queue struct {
	jobs    chan func(context.Context)
	dropped atomic.Int64
}

// NewQueue starts workers immediately; callers close the program's lifetime
// around it (there is no Stop — in-flight jobs run to completion when the
// process exits, since each job is expected to carry its own timeout).
func NewQueue(ctx context.Context, workers, bufferSize int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	q := &Queue{jobs: make(chan func(context.Context), bufferSize)}
	for i := 0; i < workers; i++ {
		go q.worker(ctx)
	}
	return q
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			job(ctx)
		}
	}
}

// Submit enqueues a job, returning false if the buffer is full (the job is
// dropped and the drop counter incremented).
func (q *Queue) Submit(job func(context.Context)) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped returns the count of jobs dropped so far due to a full buffer.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
