package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrUnknownJobKind marks jobs with no registered handler.
var ErrUnknownJobKind = errors.New("unknown job kind")

// retryableError carries the retry marker through error wrapping.
type retryableError struct {
	err error
}

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

// Retryable marks err as eligible for another attempt. Handlers wrap
// transient failures (missing source file, engine hiccup) so the pool
// retries them; everything else fails permanently on the first attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err carries the retry marker.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Result reports one finished job.
type Result struct {
	JobID    string
	Kind     string
	Value    any
	Err      error
	Attempts int
	Duration time.Duration
}

// Success reports whether the job finished without error.
func (r Result) Success() bool {
	return r.Err == nil
}

// PoolConfig configures a worker pool.
type PoolConfig struct {
	Queue    *MemQueue
	Registry *Registry
	Logger   *slog.Logger

	// Workers is the number of concurrent job executors.
	Workers int

	// Timeout bounds a single attempt. Zero means unbounded.
	Timeout time.Duration

	// MaxAttempts counts all tries including the first.
	MaxAttempts uint

	// RetryDelay is the base backoff between attempts.
	RetryDelay time.Duration
}

// Pool runs queued jobs on a fixed set of workers. Page-level work is
// independent, so there is no cross-job coordination: every worker drains
// the shared queue and reports on the results channel.
type Pool struct {
	queue    *MemQueue
	registry *Registry
	logger   *slog.Logger

	workers     int
	timeout     time.Duration
	maxAttempts uint
	retryDelay  time.Duration

	results  chan Result
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPool creates a pool. Results are buffered to the queue's capacity to
// absorb bursts, but a run can finish more jobs than that when handlers fan
// out children, so callers must drain Results while the pool runs.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}
	return &Pool{
		queue:       cfg.Queue,
		registry:    cfg.Registry,
		logger:      logger.With("component", "jobs"),
		workers:     workers,
		timeout:     cfg.Timeout,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		results:     make(chan Result, cap(cfg.Queue.jobs)),
	}
}

// Start launches the workers. They exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker pool started", "workers", p.workers)
}

// Results delivers one entry per finished job. The channel is closed by
// Stop, so ranging over it terminates once the pool shuts down.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Wait blocks until every submitted job has finished, including jobs
// submitted by handlers while draining.
func (p *Pool) Wait(ctx context.Context) error {
	return p.queue.Wait(ctx)
}

// Stop waits for the workers to exit, then closes the results channel.
// Call after cancelling the context passed to Start. Safe to call more
// than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.wg.Wait()
		close(p.results)
	})
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return

		case job := <-p.queue.Jobs():
			result := p.process(ctx, job)
			select {
			case p.results <- result:
			case <-ctx.Done():
				p.queue.done()
				return
			}
			p.queue.done()

			if result.Err != nil {
				logger.Warn("job failed",
					"job_id", job.ID, "kind", job.Kind,
					"attempts", result.Attempts, "error", result.Err)
			} else {
				logger.Debug("job finished",
					"job_id", job.ID, "kind", job.Kind,
					"attempts", result.Attempts, "duration", result.Duration)
			}
		}
	}
}

// process runs one job to completion, retrying attempts that fail with the
// retry marker or an attempt timeout.
func (p *Pool) process(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{JobID: job.ID, Kind: job.Kind}

	handler, ok := p.registry.Handler(job.Kind)
	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
		result.Attempts = 1
		result.Duration = time.Since(start)
		return result
	}

	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			attemptCtx := ctx
			if p.timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, p.timeout)
				defer cancel()
			}
			value, err := handler(attemptCtx, job)
			if value != nil {
				result.Value = value
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.maxAttempts),
		retry.Delay(p.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying job",
				"job_id", job.ID, "kind", job.Kind,
				"failed_attempt", n+1, "error", err)
		}),
	)

	result.Err = err
	result.Attempts = attempts
	result.Duration = time.Since(start)
	return result
}
