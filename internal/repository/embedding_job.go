package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studymill/studymill/internal/domain"
)

var ErrEmbeddingJobNotFound = errors.New("embedding job not found")

type EmbeddingJobRepository struct {
	db dbtx
}

func NewEmbeddingJobRepository(pool *pgxpool.Pool) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: pool}
}

func NewEmbeddingJobRepositoryWithTx(tx pgx.Tx) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: tx}
}

func (r *EmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO embedding_jobs (id, chunk_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.ChunkID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *EmbeddingJobRepository) GetByID(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
	var job domain.EmbeddingJob
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, chunk_id, status, retries, error, created_at, processed_at
		 FROM embedding_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.ChunkID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmbeddingJobNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

// ClaimPending atomically moves up to limit pending jobs to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the
// same job twice.
func (r *EmbeddingJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM embedding_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE embedding_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE embedding_jobs.id = cte.id
		 RETURNING embedding_jobs.id, embedding_jobs.chunk_id, embedding_jobs.status,
		           embedding_jobs.retries, embedding_jobs.error, embedding_jobs.created_at, embedding_jobs.processed_at`,
		domain.EmbeddingJobStatusPending, limit, domain.EmbeddingJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.EmbeddingJob
	for rows.Next() {
		var job domain.EmbeddingJob
		var errMsg pgtype.Text
		if err := rows.Scan(&job.ID, &job.ChunkID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *EmbeddingJobRepository) UpdateStatus(ctx context.Context, id string, status domain.EmbeddingJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.EmbeddingJobStatusCompleted || status == domain.EmbeddingJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE embedding_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEmbeddingJobNotFound
	}
	return nil
}

func (r *EmbeddingJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE embedding_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEmbeddingJobNotFound
	}
	return nil
}

func (r *EmbeddingJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error) {
	return r.ClaimPending(ctx, 100)
}

func (r *EmbeddingJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}
