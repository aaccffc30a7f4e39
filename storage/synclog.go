package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/pathstore"
)

// SyncRun is one recorded import, export or sync.
type SyncRun struct {
	RunID      string
	Table      string
	Direction  string
	Stats      pathstore.SyncStats
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// SyncLog persists SyncRuns in the sync_runs table.
type SyncLog struct {
	db      *sql.DB
	dialect Dialect
}

// NewSyncLog wraps db. SQLite databases get the table from migrations;
// Postgres callers should call EnsureSchema.
func NewSyncLog(db *sql.DB, dialect Dialect) *SyncLog {
	return &SyncLog{db: db, dialect: dialect}
}

// EnsureSchema creates sync_runs if absent.
func (l *SyncLog) EnsureSchema(ctx context.Context) error {
	ts := "TIMESTAMP"
	if l.dialect == Postgres {
		ts = "TIMESTAMPTZ"
	}
	_, err := l.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		direction TEXT NOT NULL,
		imported INTEGER NOT NULL DEFAULT 0,
		exported INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at %s NOT NULL,
		finished_at %s
	)`, ts, ts))
	return errors.Database(err, "ensure sync_runs")
}

// Record stores run.
func (l *SyncLog) Record(ctx context.Context, run SyncRun) error {
	var errText sql.NullString
	if run.Err != nil {
		errText = sql.NullString{String: run.Err.Error(), Valid: true}
	}
	_, err := l.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO sync_runs (run_id, table_name, direction, imported, exported, error, started_at, finished_at)
			VALUES (%s)`, l.dialect.placeholders(8)),
		run.RunID, run.Table, run.Direction, run.Stats.Imported, run.Stats.Exported, errText,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	return errors.Database(err, "record sync run")
}

// Recent returns up to limit runs for table, newest first.
func (l *SyncLog) Recent(ctx context.Context, table string, limit int) ([]SyncRun, error) {
	rows, err := l.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT run_id, table_name, direction, imported, exported, error, started_at, finished_at
			FROM sync_runs WHERE table_name = %s ORDER BY started_at DESC LIMIT %s`,
			l.dialect.placeholder(1), l.dialect.placeholder(2)),
		table, limit)
	if err != nil {
		return nil, errors.Database(err, "query sync runs")
	}
	defer rows.Close()

	var out []SyncRun
	for rows.Next() {
		var (
			run      SyncRun
			errText  sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&run.RunID, &run.Table, &run.Direction, &run.Stats.Imported, &run.Stats.Exported,
			&errText, &run.StartedAt, &finished); err != nil {
			return nil, errors.Database(err, "scan sync run")
		}
		if errText.Valid {
			run.Err = errors.New(errText.String)
		}
		run.FinishedAt = finished.Time
		out = append(out, run)
	}
	return out, errors.Database(rows.Err(), "iterate sync runs")
}

// RunSync syncs s with table through b and records the run. The run is
// recorded even when the sync fails; a recording failure is only logged.
func (l *SyncLog) RunSync(ctx context.Context, s *pathstore.Store, b pathstore.Backend, table, direction string, opts pathstore.ExportOptions) (pathstore.SyncStats, error) {
	ctx = pathstore.WithRunID(ctx)
	run := SyncRun{
		RunID:     pathstore.RunID(ctx),
		Table:     table,
		Direction: direction,
		StartedAt: time.Now(),
	}
	run.Stats, run.Err = s.Sync(ctx, b, table, direction, opts)
	run.FinishedAt = time.Now()

	if err := l.Record(ctx, run); err != nil {
		logger.FromContext(ctx, nil).Warnw("Failed to record sync run", logger.FieldError, err)
	}
	return run.Stats, run.Err
}
