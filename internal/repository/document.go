package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/pagination"
)

// DocumentPageResult is one page of a cursor-paginated document listing.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, course_id, title, kind, status, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.CourseID, d.Title, d.Kind, d.Status, nullableString(d.StatusMessage), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	var message *string
	err := r.db.QueryRow(ctx,
		`SELECT id, course_id, title, kind, status, status_message, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.CourseID, &d.Title, &d.Kind, &d.Status, &message, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if message != nil {
		d.StatusMessage = *message
	}
	return &d, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, message string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, status_message = $2, updated_at = $3 WHERE id = $4`,
		status, nullableString(message), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListByCourse(ctx context.Context, courseID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, course_id, title, kind, status, status_message, created_at, updated_at
			 FROM documents
			 WHERE course_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			courseID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, course_id, title, kind, status, status_message, created_at, updated_at
			 FROM documents
			 WHERE course_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			courseID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Delete removes a document; its chunks and jobs go with it via the
// foreign-key cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var message *string
		if err := rows.Scan(&d.ID, &d.CourseID, &d.Title, &d.Kind, &d.Status, &message, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if message != nil {
			d.StatusMessage = *message
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
