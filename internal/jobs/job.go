// Package jobs provides the in-process queue and worker pool that run
// recognition work. A job is a small description (kind plus string payload)
// dispatched to a registered handler. Delivery is at-least-once: a crash can
// replay work after snapshot recovery, so handlers must be idempotent.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one queued unit of work.
type Job struct {
	ID         string
	Kind       string
	Payload    map[string]string
	EnqueuedAt time.Time
}

// NewJob builds a job with a fresh id.
func NewJob(kind string, payload map[string]string) Job {
	return Job{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Handler executes one job. The returned value is carried on the result
// even when the attempt fails, so handlers can report structured outcomes.
// Wrap transient errors with Retryable to request another attempt.
type Handler func(ctx context.Context, job Job) (any, error)
