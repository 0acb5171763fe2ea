package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"002_shares.up.sql": {Data: []byte("CREATE TABLE shares (id UUID)")},
		"001_init.up.sql":   {Data: []byte("CREATE TABLE users (id UUID)")},
		"001_init.down.sql": {Data: []byte("DROP TABLE users")},
		"README.md":         {Data: []byte("docs")},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPendingMigrations_SortedUpOnly(t *testing.T) {
	names, err := PendingMigrations(testMigrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.up.sql", "002_shares.up.sql"}, names)
}

func TestRunMigrations_AppliesNewAndSkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("002_shares.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE shares").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_shares.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = RunMigrations(context.Background(), mock, testMigrations(), discardLogger())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorNotRetried(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE users").WillReturnError(errors.New(`syntax error at or near "users"`))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, testMigrations(), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_init.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_DeadlineDuringRetry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New("dial tcp: connection refused"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = RunMigrations(ctx, mock, testMigrations(), discardLogger())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
