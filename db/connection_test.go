package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/kbmem/errors"
)

func TestOpen(t *testing.T) {
	t.Run("opens database successfully", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		var journalMode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
		assert.Equal(t, "wal", journalMode)

		var busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	})

	t.Run("in-memory database keeps a single connection", func(t *testing.T) {
		db, err := Open(":memory:", nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec("CREATE TABLE t (x INTEGER)")
		require.NoError(t, err)
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		db, err := Open("/invalid/nonexistent/path/db.sqlite", nil)
		if err == nil && db != nil {
			err = db.Ping()
			db.Close()
		}
		assert.Error(t, err)
	})

	t.Run("creates database file if it doesn't exist", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "new.db")

		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		db, err := Open(dbPath, zaptest.NewLogger(t).Sugar())
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})
}

func TestOpenPostgres(t *testing.T) {
	t.Run("empty DSN carries a hint", func(t *testing.T) {
		_, err := OpenPostgres(context.Background(), "", nil)
		require.Error(t, err)
		assert.NotEmpty(t, errors.GetAllHints(err))
	})

	t.Run("open failure is wrapped", func(t *testing.T) {
		orig := sqlOpen
		t.Cleanup(func() { sqlOpen = orig })
		sqlOpen = func(driver, dsn string) (*sql.DB, error) {
			assert.Equal(t, "pgx", driver)
			return nil, errors.New("boom")
		}

		_, err := OpenPostgres(context.Background(), "postgres://localhost/kb", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open postgres")
	})
}

func TestOpenDriver(t *testing.T) {
	db, err := OpenDriver(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "kb.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	version, err := SchemaVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "001", version)

	_, err = OpenDriver(context.Background(), "oracle", "x", nil)
	assert.Error(t, err)
}

func TestIsDatabaseClosed(t *testing.T) {
	assert.False(t, IsDatabaseClosed(nil))
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "export")))
	assert.False(t, IsDatabaseClosed(sql.ErrConnDone))
	assert.True(t, IsDatabaseClosed(errors.New("sql: database is closed")))
}
