// Package task runs background work on a bounded pool and reports it as
// domain.Resource streams.
package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrSaturated is returned when every worker is busy and the queue is full
	ErrSaturated = errors.New("too many requests in flight")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("worker pool closed")
)

// Job is a unit of work. Abort, if set, is called instead of Run when the
// job is dropped before it starts.
type Job struct {
	Name  string
	Run   func(ctx context.Context)
	Abort func(err error)
}

// Pool runs at most size jobs at once and holds at most queue more waiting.
// Submissions beyond that are rejected instead of blocking the caller.
type Pool struct {
	workers *semaphore.Weighted
	slots   *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	logger *slog.Logger
}

// NewPool creates a pool. Non-positive sizes fall back to 1 worker and no queue.
func NewPool(size, queue int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: semaphore.NewWeighted(int64(size)),
		slots:   semaphore.NewWeighted(int64(size + queue)),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Submit schedules job without blocking. The job's context is cancelled when
// ctx is cancelled or the pool closes.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	if !p.slots.TryAcquire(1) {
		p.logger.Warn("task rejected", "task", job.Name, "error", ErrSaturated)
		return ErrSaturated
	}

	p.wg.Add(1)
	go p.run(ctx, job, uuid.NewString())
	return nil
}

func (p *Pool) run(ctx context.Context, job Job, requestID string) {
	defer p.wg.Done()
	defer p.slots.Release(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	if err := p.workers.Acquire(ctx, 1); err != nil {
		p.logger.Debug("task dropped before start", "task", job.Name, "requestID", requestID, "error", err)
		if job.Abort != nil {
			job.Abort(err)
		}
		return
	}
	defer p.workers.Release(1)

	start := time.Now()
	p.logger.Debug("task started", "task", job.Name, "requestID", requestID)
	job.Run(ctx)
	p.logger.Debug("task finished", "task", job.Name, "requestID", requestID, "elapsed", time.Since(start))
}

// Close cancels running jobs and waits for them to return.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
