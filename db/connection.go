package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/kbmem/errors"
)

// SQLiteBusyTimeoutMS is how long SQLite waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// Driver names accepted by OpenDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlOpen is replaced in tests.
var sqlOpen = sql.Open

// Open opens a SQLite database at the specified path with optimized settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path, "driver", DriverSQLite)
	}
	db, err := sqlOpen("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Each connection to :memory: is a separate database
	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA journal_mode = WAL", "enable WAL mode"},
		{"PRAGMA foreign_keys = ON", "enable foreign keys"},
		{"PRAGMA busy_timeout = 5000", "set busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to %s", p.what)
		}
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"path", path,
			"wal_mode", !inMemory,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens a SQLite database and applies pending migrations.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open with migrations")
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "open with migrations")
	}
	return db, nil
}

// OpenPostgres opens a Postgres database through the pgx driver and checks
// that it is reachable.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.WithHint(errors.New("postgres DSN is empty"), "set database.dsn or KBMEM_DATABASE_DSN")
	}
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	if logger != nil {
		logger.Infow("Database opened successfully", "driver", DriverPostgres)
	}
	return db, nil
}

// OpenDriver opens the backing store named by driver. target is a file path
// for SQLite and a DSN for Postgres. SQLite databases are migrated.
func OpenDriver(ctx context.Context, driver, target string, logger *zap.SugaredLogger) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenWithMigrations(target, logger)
	case DriverPostgres:
		return OpenPostgres(ctx, target, logger)
	default:
		return nil, errors.Newf("unknown database driver %q", driver)
	}
}
