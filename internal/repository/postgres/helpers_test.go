package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func ptr[T any](v T) *T { return &v }

// anyArgs matches a statement with n bind parameters of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var (
	uniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	fkViolation     = &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	testTime        = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
)
