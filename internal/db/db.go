// Package db holds the Postgres pool abstraction the run store is built on.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool used by this module. pgxmock's pool
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Close()
}

// CopyRows bulk-inserts rows into table using the COPY protocol. It fails
// if Postgres reports a different row count than it was given.
func CopyRows(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	if n != int64(len(rows)) {
		return eris.Errorf("db: COPY INTO %s: wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}
