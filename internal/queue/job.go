package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeTagStatistics recomputes one owner's tag statistics
	JobTypeTagStatistics JobType = "tag_statistics"
)

// DefaultTagStatisticsDebounce delays statistics jobs so a burst of edits is
// analysed once the burst has settled
const DefaultTagStatisticsDebounce = 5 * time.Second

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	SnippetID  *uuid.UUID     `json:"snippet_id,omitempty"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // nil = never expires
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, snippetID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		SnippetID:  snippetID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// NewTagStatisticsJob creates a statistics job for an owner that becomes
// eligible after delay
func NewTagStatisticsJob(userID uuid.UUID, delay time.Duration) *Job {
	job := NewJob(JobTypeTagStatistics, userID, nil)
	if delay > 0 {
		notBefore := job.CreatedAt.Add(delay)
		job.NotBefore = &notBefore
	}
	return job
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired()
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	return j.NotAfter != nil && time.Now().After(*j.NotAfter)
}

// Wait returns how long until the job becomes eligible, zero if it already is
func (j *Job) Wait() time.Duration {
	if j.NotBefore == nil {
		return 0
	}
	if d := time.Until(*j.NotBefore); d > 0 {
		return d
	}
	return 0
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
