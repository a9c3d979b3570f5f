package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/retrieval"
)

// KnowledgeChunkRepository handles persistence and retrieval of embedded
// knowledge chunks.
type KnowledgeChunkRepository struct {
	pool *pgxpool.Pool
}

func NewKnowledgeChunkRepository(pool *pgxpool.Pool) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{pool: pool}
}

// InsertBatch persists one write batch atomically and returns the generated
// chunk IDs in insertion order. A failed batch leaves no rows behind;
// previously committed batches are unaffected.
func (r *KnowledgeChunkRepository) InsertBatch(ctx context.Context, chunks []*domain.KnowledgeChunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}

		var id string
		err = tx.QueryRow(ctx,
			`INSERT INTO knowledge_chunks (document_id, content, metadata, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			c.DocumentID, c.Content, metadataJSON, embedding, createdAt,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		c.ID = id
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *KnowledgeChunkRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	var c domain.KnowledgeChunk
	var metadataJSON []byte
	var embedding *pgvector.Vector
	err := r.pool.QueryRow(ctx,
		`SELECT id, document_id, content, metadata, embedding, created_at
		 FROM knowledge_chunks WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.DocumentID, &c.Content, &metadataJSON, &embedding, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}

// UpdateContent replaces a chunk's content and queues a re-embedding job in
// the same transaction, so an edited chunk never stays searchable under its
// stale vector without a pending job to fix it.
func (r *KnowledgeChunkRepository) UpdateContent(ctx context.Context, id, content string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx,
		`UPDATE knowledge_chunks SET content = $1 WHERE id = $2`,
		content, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}

	job := domain.NewEmbeddingJob(uuid.NewString(), id, time.Now().UTC())
	if err := NewEmbeddingJobRepositoryWithTx(tx).Create(ctx, job); err != nil {
		return fmt.Errorf("failed to queue re-embedding job: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *KnowledgeChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE knowledge_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *KnowledgeChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

// HybridSearch fuses a cosine-similarity ranking and a websearch keyword
// ranking with reciprocal-rank fusion. Chunks below the similarity
// threshold only surface if the keyword ranking found them.
func (r *KnowledgeChunkRepository) HybridSearch(ctx context.Context, embedding []float32, query string, filter retrieval.SearchFilter, threshold float64, limit, rrfK int) ([]*domain.SearchHit, error) {
	if limit <= 0 {
		limit = 5
	}
	if rrfK <= 0 {
		rrfK = 60
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`WITH semantic AS (
			SELECT c.id, ROW_NUMBER() OVER (ORDER BY c.embedding <=> $1) AS rank
			FROM knowledge_chunks c
			JOIN documents d ON d.id = c.document_id
			WHERE c.embedding IS NOT NULL
			  AND 1 - (c.embedding <=> $1) >= $2
			  AND ($3 = '' OR d.course_id = $3)
			  AND ($4 = '' OR c.document_id::text = $4)
			ORDER BY c.embedding <=> $1
			LIMIT $5
		),
		lexical AS (
			SELECT c.id, ROW_NUMBER() OVER (
				ORDER BY ts_rank(to_tsvector('english', c.content), websearch_to_tsquery('english', $6)) DESC
			) AS rank
			FROM knowledge_chunks c
			JOIN documents d ON d.id = c.document_id
			WHERE to_tsvector('english', c.content) @@ websearch_to_tsquery('english', $6)
			  AND ($3 = '' OR d.course_id = $3)
			  AND ($4 = '' OR c.document_id::text = $4)
			LIMIT $5
		),
		fused AS (
			SELECT COALESCE(s.id, l.id) AS id,
			       COALESCE(1.0 / ($7 + s.rank), 0) + COALESCE(1.0 / ($7 + l.rank), 0) AS score
			FROM semantic s
			FULL OUTER JOIN lexical l ON s.id = l.id
		)
		SELECT c.id, c.document_id, c.content, c.metadata, f.score
		FROM fused f
		JOIN knowledge_chunks c ON c.id = f.id
		ORDER BY f.score DESC, c.id
		LIMIT $8`,
		vec, threshold, filter.CourseID, filter.DocumentID, limit*4, query, rrfK, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]*domain.SearchHit, 0)
	for rows.Next() {
		var h domain.SearchHit
		var metadataJSON []byte
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Content, &metadataJSON, &h.Score); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal hit metadata: %w", err)
			}
		}
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}
