package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface that both pgxpool.Pool and pgxmock satisfy.
// Stores depend on it so tests can swap in a mock pool.
type DBTX interface {
	// Exec executes a query that doesn't return rows (INSERT, UPDATE, DELETE)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)

	// Query executes a query that returns multiple rows
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow executes a query that returns at most one row
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Begin starts a transaction
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Compile-time check that Pool satisfies DBTX
var _ DBTX = (*Pool)(nil)

// withTx runs fn inside a transaction, committing on success and rolling back on error
func withTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
