package workers

import (
	"context"
	"fmt"

	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/queue"
	"go.uber.org/zap"
)

// Task names; failures are logged as <name>_failed
const (
	TaskMemoryUpdate  = "memory_update"
	TaskMemoryPublish = "memory_update_publish"
)

// UpdateScheduler records a memory update without making the caller wait
type UpdateScheduler interface {
	Schedule(userID string, u memory.Update) bool
}

// MemoryUpdater applies updates directly to the memory store in the background
type MemoryUpdater struct {
	store    memory.Store
	executor Executor
	logger   *zap.Logger
	locks    userLocks
}

// NewMemoryUpdater creates an updater writing to store
func NewMemoryUpdater(store memory.Store, executor Executor, logger *zap.Logger) *MemoryUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryUpdater{store: store, executor: executor, logger: logger}
}

// Schedule submits the read-modify-write of the user's memory. Updates for
// the same user are applied one at a time.
func (u *MemoryUpdater) Schedule(userID string, update memory.Update) bool {
	return u.executor.Submit(TaskMemoryUpdate, func(ctx context.Context) error {
		unlock, err := u.locks.acquire(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock memory for update: %w", err)
		}
		defer unlock()

		next, err := memory.Record(ctx, u.store, userID, update)
		if err != nil {
			return err
		}
		u.logger.Debug("memory_updated",
			zap.Int("days_active", next.DaysActive),
			zap.Int("protein_streak_days", next.ProteinStreakDays),
		)
		return nil
	})
}

// JobEnqueuer is the publishing half of queue.JobQueue
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// QueuedMemoryUpdater hands updates to the worker process through the job queue
type QueuedMemoryUpdater struct {
	queue    JobEnqueuer
	executor Executor
	logger   *zap.Logger
}

// NewQueuedMemoryUpdater creates an updater publishing memory_update jobs
func NewQueuedMemoryUpdater(q JobEnqueuer, executor Executor, logger *zap.Logger) *QueuedMemoryUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueuedMemoryUpdater{queue: q, executor: executor, logger: logger}
}

// Schedule publishes a memory_update job off the request path
func (u *QueuedMemoryUpdater) Schedule(userID string, update memory.Update) bool {
	job := queue.NewMemoryUpdateJob(userID, update)
	return u.executor.Submit(TaskMemoryPublish, func(ctx context.Context) error {
		if err := u.queue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
		}
		u.logger.Debug("memory_update_published", zap.String("job_id", job.ID.String()))
		return nil
	})
}

var (
	_ UpdateScheduler = (*MemoryUpdater)(nil)
	_ UpdateScheduler = (*QueuedMemoryUpdater)(nil)
)
