package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of the pgx API repositories depend on. *pgxpool.Pool,
// pgx.Tx and pgxmock.PgxPoolIface all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UniqueViolation is the SQLSTATE PostgreSQL reports for unique_violation.
const UniqueViolation = "23505"

// ForeignKeyViolation is the SQLSTATE PostgreSQL reports for foreign_key_violation.
const ForeignKeyViolation = "23503"

// IsPgCode reports whether err carries the given PostgreSQL error code.
func IsPgCode(err error, code string) bool {
	pgErr, ok := asPgError(err)
	return ok && pgErr.Code == code
}
