package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus is the lifecycle state of a deferred embedding job.
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// Valid reports whether s is a known status.
func (s EmbeddingJobStatus) Valid() bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether a job in status s is never picked up again.
func (s EmbeddingJobStatus) Terminal() bool {
	return s == EmbeddingJobStatusCompleted || s == EmbeddingJobStatusFailed
}

// EmbeddingJob re-embeds the chunks of a document whose ingestion left vectors missing.
type EmbeddingJob struct {
	ID          string
	DocumentID  string
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// QueueEmbeddingJob returns a pending job for documentID.
func QueueEmbeddingJob(id, documentID string, now time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:         id,
		DocumentID: documentID,
		Status:     EmbeddingJobStatusPending,
		CreatedAt:  now,
	}
}

// Validate checks the fields the job store relies on.
func (j *EmbeddingJob) Validate() error {
	switch {
	case j == nil:
		return fmt.Errorf("embedding job cannot be nil")
	case j.ID == "":
		return fmt.Errorf("embedding job ID is required")
	case j.DocumentID == "":
		return fmt.Errorf("embedding job DocumentID is required")
	case !j.Status.Valid():
		return fmt.Errorf("embedding job Status is invalid: %s", j.Status)
	case j.Retries < 0:
		return fmt.Errorf("embedding job Retries cannot be negative")
	}
	return nil
}

// AfterFailure returns the status and error message for a failed attempt. The job goes
// back to pending until the attempt count reaches maxRetries.
func (j *EmbeddingJob) AfterFailure(cause error, maxRetries int) (EmbeddingJobStatus, string) {
	attempt := int(j.Retries) + 1
	if attempt >= maxRetries {
		return EmbeddingJobStatusFailed, fmt.Sprintf("max retries exceeded: %v", cause)
	}
	return EmbeddingJobStatusPending, fmt.Sprintf("retry %d: %v", attempt, cause)
}
