// Package db provides PostgreSQL-backed repository implementations for the
// Flux ingestion pipeline. All repositories accept a DBTX interface that is
// satisfied by both *pgxpool.Pool (for normal queries) and pgx.Tx (for
// transactional execution), enabling clean transaction support.
//
// Batch writes are all-or-nothing: each collector run persists one batch per
// table inside a transaction, so a mid-batch failure leaves no partial run
// in the tables.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// Repositories accept this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is the pool-level capability set the Store needs: transactions for
// the batch writes and direct queries for the read surface. Satisfied by
// *pgxpool.Pool.
type Conn interface {
	TxBeginner
	DBTX
}
