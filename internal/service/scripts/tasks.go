package scripts

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TaskError is the failure of one detached task.
type TaskError struct {
	Name string
	Err  error
}

// BackgroundRunner runs best-effort work detached from the request that
// started it. Failures go to an error channel drained by a logger goroutine
// and never reach the caller.
type BackgroundRunner struct {
	logger   *slog.Logger
	timeout  time.Duration
	errs     chan TaskError
	drained  chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	failures atomic.Int64
}

// NewBackgroundRunner starts the error drain. timeout bounds each task.
func NewBackgroundRunner(logger *slog.Logger, timeout time.Duration) *BackgroundRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &BackgroundRunner{
		logger:  logger,
		timeout: timeout,
		errs:    make(chan TaskError, 64),
		drained: make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *BackgroundRunner) drain() {
	defer close(r.drained)
	for te := range r.errs {
		r.failures.Add(1)
		r.logger.Warn("background task failed", "task", te.Name, "error", te.Err)
	}
}

// Go runs fn on its own goroutine with a fresh context
func (r *BackgroundRunner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Debug("background runner closed, task dropped", "task", name)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.errs <- TaskError{Name: name, Err: err}
		}
	}()
}

// Failures reports how many tasks have failed and been logged so far.
func (r *BackgroundRunner) Failures() int64 {
	return r.failures.Load()
}

// Close waits for running tasks and stops the drain. Tasks started after
// Close are dropped.
func (r *BackgroundRunner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	close(r.errs)
	<-r.drained
}
