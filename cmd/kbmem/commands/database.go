package commands

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/kbmem/am"
	"github.com/teranos/kbmem/db"
	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/pathstore"
	"github.com/teranos/kbmem/storage"
)

// session bundles what every command needs: configuration, an open
// backing database and the storage adapters over it.
type session struct {
	cfg     *am.Config
	db      *sql.DB
	dialect storage.Dialect
	backend *storage.SQLBackend
	syncLog *storage.SyncLog
	log     *zap.SugaredLogger
}

// openSession loads and validates configuration, then opens the configured
// database. SQLite databases are migrated; Postgres gets sync_runs created.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	log := logger.ComponentLogger("cli")
	database, err := db.OpenDriver(ctx, cfg.Database.Driver, cfg.Target(), logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", dialect)
	}

	syncLog := storage.NewSyncLog(database, dialect)
	if dialect == storage.Postgres {
		if err := syncLog.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
	}

	return &session{
		cfg:     cfg,
		db:      database,
		dialect: dialect,
		backend: storage.NewSQLBackend(database, dialect, logger.Logger),
		syncLog: syncLog,
		log:     log,
	}, nil
}

// Close closes the database, logging a failed close.
func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		logger.Warnw("Failed to close database",
			logger.FieldOperation, "close",
			logger.FieldDriver, s.dialect.String(),
			logger.FieldError, err)
	}
}

// loadStore imports the configured table into a fresh path store.
func (s *session) loadStore(ctx context.Context) (*pathstore.Store, error) {
	store := pathstore.New(logger.Logger)
	if _, err := store.ImportFrom(ctx, s.backend, s.cfg.Store.Table); err != nil {
		return nil, errors.Wrapf(err, "failed to load table %s", s.cfg.Store.Table)
	}
	return store, nil
}

func (s *session) exportOptions() pathstore.ExportOptions {
	return pathstore.ExportOptions{
		CreateTable:   true,
		ClearExisting: s.cfg.Store.ClearBeforeExport,
		BatchSize:     s.cfg.Store.BatchSize,
	}
}
