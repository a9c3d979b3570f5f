// Package repository implements Postgres persistence for documents,
// knowledge chunks, and embedding jobs using pgx and pgvector.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx the repositories need, so
// the same code runs inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
