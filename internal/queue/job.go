package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeMoodAnalysis asks the model to label a raw mood check-in
	JobTypeMoodAnalysis JobType = "mood_analysis"
)

// DefaultMaxRetries is the retry budget of a new job
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID           uuid.UUID  `json:"id"`
	Type         JobType    `json:"type"`
	UserID       uuid.UUID  `json:"user_id"`
	ContextLogID *uuid.UUID `json:"context_log_id,omitempty"`
	// EnergyProvided keeps the user's own energy rating when the mood label is filled in
	EnergyProvided bool       `json:"energy_provided,omitempty"`
	NotBefore      *time.Time `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter       *time.Time `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	CreatedAt      time.Time  `json:"created_at"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewMoodAnalysisJob creates a job that analyzes the pending check-in logID
func NewMoodAnalysisJob(userID, logID uuid.UUID, energyProvided bool) *Job {
	job := NewJob(JobTypeMoodAnalysis, userID)
	job.ContextLogID = &logID
	job.EnergyProvided = energyProvided
	// A label that arrives a day late is no longer useful as recent context
	notAfter := job.CreatedAt.Add(24 * time.Hour)
	job.NotAfter = &notAfter
	return job
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

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// RetryAfter returns a copy of the job scheduled no earlier than now+delay with the retry count bumped
func (j *Job) RetryAfter(delay time.Duration) *Job {
	next := *j
	next.IncrementRetry()
	notBefore := time.Now().Add(delay)
	next.NotBefore = &notBefore
	if next.NotAfter != nil && next.NotAfter.Before(notBefore) {
		// keep the job alive long enough to be delivered once more
		notAfter := notBefore.Add(time.Hour)
		next.NotAfter = &notAfter
	}
	return &next
}
