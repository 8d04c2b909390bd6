package queue

import (
	"time"

	"github.com/benvon/insight-coach/internal/memory"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeMemoryUpdate folds one answered request into a user's memory
	JobTypeMemoryUpdate JobType = "memory_update"
)

const (
	// DefaultMaxRetries is how often a failed job is re-enqueued before it goes to the DLQ
	DefaultMaxRetries = 3
	// DefaultJobTTL drops memory updates nobody processed within a day
	DefaultJobTTL = 24 * time.Hour
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     string         `json:"user_id"`
	Update     *memory.Update `json:"update,omitempty"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewMemoryUpdateJob creates a memory update job that expires after DefaultJobTTL.
func NewMemoryUpdateJob(userID string, u memory.Update) *Job {
	now := time.Now()
	notAfter := now.Add(DefaultJobTTL)
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeMemoryUpdate,
		UserID:     userID,
		Update:     &u,
		NotAfter:   &notAfter,
		CreatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry returns a copy of the job scheduled after delay with its retry
// count incremented.
func (j *Job) Retry(delay time.Duration) *Job {
	next := *j
	notBefore := time.Now().Add(delay)
	next.NotBefore = &notBefore
	next.RetryCount = j.RetryCount + 1
	return &next
}

// RetryDelay is an exponential backoff starting at 5 seconds and capped at
// 5 minutes.
func RetryDelay(attempt int) time.Duration {
	attempt = max(0, min(attempt, 10))
	delay := 5 * time.Second * time.Duration(1<<uint(attempt))
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
