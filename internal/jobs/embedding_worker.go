package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/studymill/studymill/internal/domain"
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

// ChunkStore loads chunk content and replaces stored vectors in place.
type ChunkStore interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingClient generates the replacement vector.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingWorker processes chunk re-embedding jobs.
type EmbeddingWorker struct {
	repo      EmbeddingJobRepository
	chunks    ChunkStore
	embedding EmbeddingClient
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo EmbeddingJobRepository, chunks ChunkStore, embedding EmbeddingClient) *EmbeddingWorker {
	return &EmbeddingWorker{
		repo:      repo,
		chunks:    chunks,
		embedding: embedding,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending embedding jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	log.Printf("Processing job %s for chunk %s", job.ID, job.ChunkID)

	chunk, err := w.chunks.GetByID(ctx, job.ChunkID)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	embedding, err := w.embedding.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	// An empty vector means the provider had nothing to embed; the stored
	// vector stays as it is.
	if len(embedding) > 0 {
		if err := w.chunks.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
			return w.handleJobFailure(ctx, job, err)
		}
	} else {
		log.Printf("Job %s: empty embedding for chunk %s, vector unchanged", job.ID, chunk.ID)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
