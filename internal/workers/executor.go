package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultTaskTimeout bounds a single background task
const DefaultTaskTimeout = 10 * time.Second

// Task is a unit of background work
type Task func(ctx context.Context) error

// Executor runs fire-and-forget work off the request path. Submit never
// blocks; it reports whether the task was accepted.
type Executor interface {
	Submit(name string, task Task) bool
}

// AsyncExecutor runs tasks on their own goroutines, at most limit at a time.
// A task submitted while the executor is saturated is dropped.
type AsyncExecutor struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncExecutor creates an executor running up to limit tasks concurrently
func NewAsyncExecutor(limit int, timeout time.Duration, logger *zap.Logger) *AsyncExecutor {
	if limit <= 0 {
		limit = 1
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &AsyncExecutor{
		sem:     semaphore.NewWeighted(int64(limit)),
		timeout: timeout,
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}
}

// Submit schedules task and returns immediately
func (e *AsyncExecutor) Submit(name string, task Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.logger.Warn("background_task_rejected", zap.String("task", name), zap.String("reason", "shutting_down"))
		return false
	}
	if !e.sem.TryAcquire(1) {
		e.logger.Warn("background_task_dropped", zap.String("task", name), zap.String("reason", "executor_full"))
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.sem.Release(1)
		e.run(name, task)
	}()
	return true
}

func (e *AsyncExecutor) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(e.base, e.timeout)
	defer cancel()

	start := time.Now()
	if err := safeRun(ctx, task); err != nil {
		e.logger.Warn(name+"_failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	e.logger.Debug(name+"_completed", zap.Duration("duration", time.Since(start)))
}

// Shutdown stops accepting tasks and waits for in-flight ones. When ctx ends
// first, running tasks are cancelled and ctx's error is returned.
func (e *AsyncExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return ctx.Err()
	}
}

// InlineExecutor runs each task synchronously on the caller's goroutine
type InlineExecutor struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

func (e InlineExecutor) Submit(name string, task Task) bool {
	ctx := context.Background()
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	if err := safeRun(ctx, task); err != nil && e.Logger != nil {
		e.Logger.Warn(name+"_failed", zap.Error(err))
	}
	return true
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

var (
	_ Executor = (*AsyncExecutor)(nil)
	_ Executor = InlineExecutor{}
)
