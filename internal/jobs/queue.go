package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQueueFull is returned by Submit when the queue cannot take more work.
var ErrQueueFull = errors.New("job queue full")

// Queue accepts jobs for asynchronous execution.
type Queue interface {
	// Submit enqueues a job without blocking. Returns ErrQueueFull when
	// the buffer is exhausted.
	Submit(job Job) error

	// Jobs is the stream workers consume.
	Jobs() <-chan Job
}

// MemQueue is a channel-backed queue. Submitted jobs live only as long as
// the process; crash recovery relies on the catalog snapshot demoting
// in-flight pages back to pending, not on queue durability.
type MemQueue struct {
	jobs    chan Job
	pending sync.WaitGroup
}

// NewMemQueue creates a queue buffering at most size jobs.
func NewMemQueue(size int) *MemQueue {
	if size <= 0 {
		size = 256
	}
	return &MemQueue{jobs: make(chan Job, size)}
}

// Submit enqueues a job without blocking.
func (q *MemQueue) Submit(job Job) error {
	q.pending.Add(1)
	select {
	case q.jobs <- job:
		return nil
	default:
		q.pending.Done()
		return fmt.Errorf("%w: %s", ErrQueueFull, job.Kind)
	}
}

// Jobs is the stream workers consume.
func (q *MemQueue) Jobs() <-chan Job {
	return q.jobs
}

// Depth reports how many jobs are buffered and not yet picked up.
func (q *MemQueue) Depth() int {
	return len(q.jobs)
}

// done marks one submitted job fully processed. Called by pool workers.
func (q *MemQueue) done() {
	q.pending.Done()
}

// Wait blocks until every submitted job has been processed, including jobs
// handlers submit while draining. Submissions from a running handler are
// counted before the submitting job finishes, so the count cannot settle
// early.
func (q *MemQueue) Wait(ctx context.Context) error {
	settled := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(settled)
	}()
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
