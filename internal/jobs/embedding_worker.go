package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// EmbeddingJobRepository defines the interface for embedding job persistence
type EmbeddingJobRepository interface {
	// GetPendingJobs retrieves and claims pending embedding jobs
	GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error)

	// UpdateJobStatus updates the status of an embedding job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// DocumentEmbedder embeds the chunks of a document that are still missing an embedding
// and marks the document ready once none are left. MarkEmbeddingFailed moves a document
// whose job ran out of retries to the failed status.
type DocumentEmbedder interface {
	EmbedMissing(ctx context.Context, documentID string) error
	MarkEmbeddingFailed(ctx context.Context, documentID string) error
}

// EmbeddingWorker processes embedding jobs
type EmbeddingWorker struct {
	repo    EmbeddingJobRepository
	service DocumentEmbedder
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo EmbeddingJobRepository, service DocumentEmbedder) *EmbeddingWorker {
	return &EmbeddingWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	// Fetch pending jobs
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending embedding jobs", len(jobs))

	// Process each job
	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	ctx, span := telemetry.StartTransaction(ctx, "EmbeddingWorker.processJob", "job.embed")
	defer span.End()
	span.SetData("document_id", job.DocumentID)

	if job.DocumentID == "" {
		return fmt.Errorf("job %s has no document_id", job.ID)
	}

	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)
	if err := w.service.EmbedMissing(ctx, job.DocumentID); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			// The document was deleted after the job was queued.
			return w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "document not found")
		}
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure records a failed attempt and either requeues the job or gives up on it.
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	status, errMsg := job.AfterFailure(jobErr, MaxRetries)
	if status == domain.EmbeddingJobStatusFailed {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		telemetry.CaptureError(ctx, fmt.Errorf("embedding job %s for document %s: %w", job.ID, job.DocumentID, jobErr))
		if err := w.service.MarkEmbeddingFailed(ctx, job.DocumentID); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
			log.Printf("Job %s: failed to mark document %s as failed: %v", job.ID, job.DocumentID, err)
		}
	} else {
		log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
		return fmt.Errorf("failed to set job status to %s: %w", status, err)
	}
	return nil
}
