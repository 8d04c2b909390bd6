package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/queue"
	"go.uber.org/zap"
)

// ErrMalformedJob marks a job that can never succeed
var ErrMalformedJob = errors.New("malformed job")

// MemoryJobProcessor applies memory_update jobs consumed from the queue
type MemoryJobProcessor struct {
	store     memory.Store
	queue     JobEnqueuer
	logger    *zap.Logger
	debugMode bool
	locks     userLocks
}

// NewMemoryJobProcessor creates a processor. Failed jobs are re-published to q
// while retries remain.
func NewMemoryJobProcessor(store memory.Store, q JobEnqueuer, logger *zap.Logger, debugMode bool) *MemoryJobProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryJobProcessor{store: store, queue: q, logger: logger, debugMode: debugMode}
}

// ProcessJob processes one delivery and settles it. Success is acked,
// retryable failures are acked and re-published with a backoff, and anything
// else is nacked to the dead letter queue.
func (p *MemoryJobProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if job == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Error("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("%w: empty message", ErrMalformedJob)
	}

	if job.IsExpired() {
		p.logger.Info("queue_job_expired", zap.String("job_id", job.ID.String()))
		return msg.Ack()
	}

	switch job.Type {
	case queue.JobTypeMemoryUpdate:
		if job.UserID == "" || job.Update == nil {
			p.deadLetter(msg, job)
			return fmt.Errorf("%w: job %s has no user or update", ErrMalformedJob, job.ID)
		}

		next, err := p.record(ctx, job.UserID, *job.Update)
		if err != nil {
			return p.handleJobError(ctx, msg, job, err)
		}
		if p.debugMode {
			p.logger.Debug("memory_job_applied",
				zap.String("job_id", job.ID.String()),
				zap.Int("days_active", next.DaysActive),
				zap.Int("protein_streak_days", next.ProteinStreakDays),
				zap.String("sentiment", string(next.LastFeedbackSentiment)),
			)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		p.deadLetter(msg, job)
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// record applies u under the user's lock so concurrent deliveries for the
// same user cannot overwrite each other
func (p *MemoryJobProcessor) record(ctx context.Context, userID string, u memory.Update) (memory.Memory, error) {
	unlock, err := p.locks.acquire(ctx, userID)
	if err != nil {
		return memory.Memory{}, fmt.Errorf("failed to lock memory for update: %w", err)
	}
	defer unlock()
	return memory.Record(ctx, p.store, userID, u)
}

// handleJobError re-publishes a failed job with backoff, or dead-letters it
// once its retries are spent.
func (p *MemoryJobProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, jobErr error) error {
	if !job.CanRetry() || p.queue == nil {
		p.logger.Error("memory_job_retries_exhausted",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(jobErr),
		)
		p.deadLetter(msg, job)
		return fmt.Errorf("memory update failed after %d retries: %w", job.RetryCount, jobErr)
	}

	delay := queue.RetryDelay(job.RetryCount)
	retry := job.Retry(delay)
	if err := p.queue.Enqueue(ctx, retry); err != nil {
		p.logger.Error("failed_to_requeue_job", zap.String("job_id", job.ID.String()), zap.Error(err))
		p.deadLetter(msg, job)
		return fmt.Errorf("failed to requeue job: %w", err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job after requeue: %w", ackErr)
	}

	p.logger.Warn("memory_job_retry_scheduled",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", retry.RetryCount),
		zap.Duration("delay", delay),
		zap.Error(jobErr),
	)
	return nil
}

func (p *MemoryJobProcessor) deadLetter(msg queue.MessageInterface, job *queue.Job) {
	if err := msg.Nack(false); err != nil {
		p.logger.Error("failed_to_nack_job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
