// Package processing runs thumbnail jobs on an in-process worker pool. It
// stands in for the asynq broker when FILEVAULT_QUEUE_BACKEND=memory: jobs
// live in a buffered channel and are lost if the process exits.
package processing

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dharsanguruparan/FileVault/internal/queue"
)

// ErrQueueFull is returned by EnqueueThumbnail when the buffer is full.
var ErrQueueFull = errors.New("processing queue full")

// ErrStopped is returned by EnqueueThumbnail after Stop.
var ErrStopped = errors.New("processing pool stopped")

// HandlerFunc processes one job.
type HandlerFunc func(ctx context.Context, job queue.ThumbnailPayload) error

// Pool consumes thumbnail jobs with a fixed number of goroutines.
type Pool struct {
	handle   HandlerFunc
	queue    chan queue.ThumbnailPayload
	workers  int
	maxRetry int
	log      *slog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	once    sync.Once
}

// New builds a Pool with queue capacity tied to worker count. Each job gets
// 1+maxRetry attempts.
func New(handle HandlerFunc, workers, maxRetry int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &Pool{
		handle:   handle,
		queue:    make(chan queue.ThumbnailPayload, workers*16),
		workers:  workers,
		maxRetry: maxRetry,
		log:      log,
	}
}

// Start launches worker goroutines. They exit when ctx is cancelled or Stop
// drains the queue.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx)
		}
	})
}

// EnqueueThumbnail implements queue.Enqueuer without blocking the request.
func (p *Pool) EnqueueThumbnail(ctx context.Context, job queue.ThumbnailPayload) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets workers finish what is queued and waits.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(ctx, job)
		}
	}
}

// run returns the number of attempts made; the job either succeeded on the
// last one or was dropped.
func (p *Pool) run(ctx context.Context, job queue.ThumbnailPayload) int {
	var err error
	attempts := 0
	for attempts <= p.maxRetry {
		attempts++
		if err = p.handle(ctx, job); err == nil {
			return attempts
		}
		if ctx.Err() != nil {
			break
		}
	}
	p.log.ErrorContext(ctx, "thumbnail job dropped",
		"file_id", job.FileID, "user_id", job.UserID, "attempts", attempts, "error", err)
	return attempts
}
