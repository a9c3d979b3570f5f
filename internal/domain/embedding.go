package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus represents the status of a re-embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// EmbeddingJob represents an async re-embedding job for a knowledge chunk.
// Jobs are queued when a chunk's content is edited and its stored vector
// must be replaced in place.
type EmbeddingJob struct {
	ID          string
	ChunkID     string
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEmbeddingJob creates a new EmbeddingJob instance
func NewEmbeddingJob(id, chunkID string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:        id,
		ChunkID:   chunkID,
		Status:    EmbeddingJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateEmbeddingJob validates an EmbeddingJob instance
func ValidateEmbeddingJob(j *EmbeddingJob) error {
	if j == nil {
		return fmt.Errorf("embedding job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("embedding job ID is required")
	}

	if j.ChunkID == "" {
		return fmt.Errorf("embedding job ChunkID is required")
	}

	if !isValidEmbeddingJobStatus(j.Status) {
		return fmt.Errorf("embedding job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("embedding job Retries cannot be negative")
	}

	return nil
}

// isValidEmbeddingJobStatus checks if an EmbeddingJobStatus is valid
func isValidEmbeddingJobStatus(s EmbeddingJobStatus) bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}
