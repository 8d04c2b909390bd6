package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/google/uuid"
)

func TestNewMemoryUpdateJob(t *testing.T) {
	t.Parallel()

	protein := 150.0
	job := NewMemoryUpdateJob("user-1", memory.Update{ProteinG: &protein, Feedback: models.FeedbackPositive})

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeMemoryUpdate {
		t.Errorf("Expected job type to be %s, got %s", JobTypeMemoryUpdate, job.Type)
	}
	if job.UserID != "user-1" {
		t.Errorf("Expected user ID to be user-1, got %s", job.UserID)
	}
	if job.Update == nil || job.Update.ProteinG == nil || *job.Update.ProteinG != 150 {
		t.Errorf("Expected update to carry protein, got %+v", job.Update)
	}
	if job.MaxRetries != DefaultMaxRetries || job.RetryCount != 0 {
		t.Errorf("retries = %d/%d", job.RetryCount, job.MaxRetries)
	}
	if job.NotAfter == nil || job.NotAfter.Sub(job.CreatedAt) != DefaultJobTTL {
		t.Errorf("Expected NotAfter one TTL after creation, got %v", job.NotAfter)
	}
	if !job.ShouldProcess() {
		t.Error("new job should be processable")
	}
}

func TestJob_JSONCarriesUpdate(t *testing.T) {
	t.Parallel()

	protein := 90.0
	job := NewMemoryUpdateJob("user-2", memory.Update{ProteinG: &protein, Feedback: models.FeedbackNegative})
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Update == nil || decoded.Update.Feedback != models.FeedbackNegative || *decoded.Update.ProteinG != 90 {
		t.Errorf("decoded update = %+v", decoded.Update)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name string
		job  *Job
		want bool
	}{
		{name: "no time constraints", job: &Job{}, want: true},
		{name: "not before in past", job: &Job{NotBefore: timePtr(now.Add(-time.Hour))}, want: true},
		{name: "not before in future", job: &Job{NotBefore: timePtr(now.Add(time.Hour))}, want: false},
		{name: "not after in past", job: &Job{NotAfter: timePtr(now.Add(-time.Hour))}, want: false},
		{name: "within time window", job: &Job{NotBefore: timePtr(now.Add(-time.Hour)), NotAfter: timePtr(now.Add(time.Hour))}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if (&Job{}).IsExpired() {
		t.Error("job without NotAfter should never expire")
	}
	if !(&Job{NotAfter: timePtr(now.Add(-time.Minute))}).IsExpired() {
		t.Error("expected expired job")
	}
	if (&Job{NotAfter: timePtr(now.Add(time.Minute))}).IsExpired() {
		t.Error("job should not be expired yet")
	}
}

func TestJob_CanRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retryCount int
		want       bool
	}{
		{retryCount: 0, want: true},
		{retryCount: 2, want: true},
		{retryCount: 3, want: false},
		{retryCount: 4, want: false},
	}
	for _, tt := range tests {
		job := &Job{RetryCount: tt.retryCount, MaxRetries: 3}
		if got := job.CanRetry(); got != tt.want {
			t.Errorf("CanRetry() with %d retries = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewMemoryUpdateJob("user-3", memory.Update{})
	next := job.Retry(10 * time.Second)

	if next == job {
		t.Fatal("Retry should return a copy")
	}
	if next.ID != job.ID || next.UserID != job.UserID {
		t.Error("Retry should keep identity")
	}
	if next.RetryCount != 1 || job.RetryCount != 0 {
		t.Errorf("retry counts = %d (copy), %d (original)", next.RetryCount, job.RetryCount)
	}
	if next.NotBefore == nil || time.Until(*next.NotBefore) <= 0 {
		t.Errorf("NotBefore = %v, want future", next.NotBefore)
	}
	if next.ShouldProcess() {
		t.Error("delayed retry should not be processable yet")
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 5 * time.Second},
		{attempt: 0, want: 5 * time.Second},
		{attempt: 1, want: 10 * time.Second},
		{attempt: 3, want: 40 * time.Second},
		{attempt: 6, want: 5 * time.Minute},
		{attempt: 50, want: 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.attempt); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
