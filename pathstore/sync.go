package pathstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
)

// Row is one record exchanged with a Backend. Value holds JSON text.
type Row struct {
	Path      string
	Value     []byte
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// Backend is the relational store entries are imported from and exported to.
type Backend interface {
	TableExists(ctx context.Context, table string) (bool, error)
	// CreateTable creates table with path and value indices if it is absent.
	CreateTable(ctx context.Context, table string) error
	// BulkRead returns every row of table ordered by path.
	BulkRead(ctx context.Context, table string) ([]Row, error)
	// BulkUpsert inserts rows, updating those whose path already exists.
	BulkUpsert(ctx context.Context, table string, rows []Row) (int, error)
	Truncate(ctx context.Context, table string) error
}

// Sync directions.
const (
	DirectionImport = "import"
	DirectionExport = "export"
	DirectionBoth   = "both"
)

// ExportOptions controls ExportTo.
type ExportOptions struct {
	// CreateTable creates the destination table when it does not exist.
	CreateTable bool
	// ClearExisting truncates the destination before writing.
	ClearExisting bool
	// BatchSize bounds the rows sent per BulkUpsert call. Zero sends one batch.
	BatchSize int
}

// SyncStats counts the rows moved by Sync.
type SyncStats struct {
	Imported int `json:"imported" yaml:"imported"`
	Exported int `json:"exported" yaml:"exported"`
}

// ImportFrom loads every row of table into the store, returning the number
// of rows stored. Rows with malformed paths are skipped; values that are not
// valid JSON are stored as nil. A missing table imports nothing.
func (s *Store) ImportFrom(ctx context.Context, b Backend, table string) (int, error) {
	ctx = WithRunID(ctx)
	log := logger.FromContext(ctx, s.logger)

	exists, err := b.TableExists(ctx, table)
	if err != nil {
		return 0, errors.Database(err, "check table")
	}
	if !exists {
		log.Warnw("Import table does not exist", logger.FieldTable, table)
		return 0, nil
	}

	start := time.Now()
	rows, err := b.BulkRead(ctx, table)
	if err != nil {
		return 0, errors.Database(err, "bulk read")
	}

	imported, skipped := 0, 0
	for _, row := range rows {
		e := Entry{
			Path:      row.Path,
			Value:     decodeValue(row.Value),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
		if err := s.PutEntry(e); err != nil {
			log.Debugw("Skipping row", logger.FieldPath, row.Path, logger.FieldError, err)
			skipped++
			continue
		}
		imported++
	}

	log.Infow("Imported entries",
		logger.FieldTable, table,
		logger.FieldCount, imported,
		logger.FieldSkipped, skipped,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return imported, nil
}

// ExportTo writes every entry to table, returning the number of rows written.
// Partial completion is possible when a later batch fails.
func (s *Store) ExportTo(ctx context.Context, b Backend, table string, opts ExportOptions) (int, error) {
	ctx = WithRunID(ctx)
	log := logger.FromContext(ctx, s.logger)
	start := time.Now()

	if opts.CreateTable {
		if err := b.CreateTable(ctx, table); err != nil {
			return 0, errors.Database(err, "create table")
		}
	}
	if opts.ClearExisting {
		if err := b.Truncate(ctx, table); err != nil {
			return 0, errors.Database(err, "truncate")
		}
	}

	entries := s.Entries()
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(e.Value)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrValidation, "encode value at %q: %v", e.Path, err)
		}
		rows = append(rows, Row{Path: e.Path, Value: raw, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt})
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = len(rows)
	}
	exported := 0
	for lo := 0; lo < len(rows); lo += batch {
		hi := min(lo+batch, len(rows))
		n, err := b.BulkUpsert(ctx, table, rows[lo:hi])
		exported += n
		if err != nil {
			return exported, errors.Database(err, "bulk upsert")
		}
	}

	log.Infow("Exported entries",
		logger.FieldTable, table,
		logger.FieldCount, exported,
		logger.FieldBatchSize, batch,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return exported, nil
}

// Sync moves entries between the store and table. "both" imports first.
func (s *Store) Sync(ctx context.Context, b Backend, table, direction string, opts ExportOptions) (SyncStats, error) {
	var stats SyncStats
	ctx = WithRunID(ctx)

	switch direction {
	case DirectionImport, DirectionExport, DirectionBoth:
	default:
		return stats, errors.Wrapf(errors.ErrValidation, "sync direction %q", direction)
	}

	logger.FromContext(ctx, s.logger).Infow("Sync started",
		logger.FieldTable, table,
		logger.FieldDirection, direction,
	)

	if direction == DirectionImport || direction == DirectionBoth {
		n, err := s.ImportFrom(ctx, b, table)
		stats.Imported = n
		if err != nil {
			return stats, err
		}
	}
	if direction == DirectionExport || direction == DirectionBoth {
		n, err := s.ExportTo(ctx, b, table, opts)
		stats.Exported = n
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func decodeValue(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

type runIDKey struct{}

// WithRunID tags ctx with a fresh sync run id unless it already has one.
// Every import and export logs the id as run_id.
func WithRunID(ctx context.Context) context.Context {
	if _, ok := ctx.Value(runIDKey{}).(string); ok {
		return ctx
	}
	id := uuid.NewString()
	return logger.WithRunID(context.WithValue(ctx, runIDKey{}, id), id)
}

// RunID returns the sync run id carried by ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
