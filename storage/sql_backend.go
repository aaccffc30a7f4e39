// Package storage implements the relational collaborators of the knowledge
// store: the entry Backend used for import and export, the KB registry, and
// the sync run log. SQLite and Postgres are supported.
package storage

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/pathstore"
)

var _ pathstore.Backend = (*SQLBackend)(nil)

// SQLBackend stores entries in one table per knowledge base collection.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.SugaredLogger
}

// NewSQLBackend wraps db. A nil logger disables logging.
func NewSQLBackend(db *sql.DB, dialect Dialect, log *zap.SugaredLogger) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect, logger: logger.OrNop(log)}
}

// TableExists reports whether table is present.
func (b *SQLBackend) TableExists(ctx context.Context, table string) (_ bool, err error) {
	defer observe("table_exists", newTimer("table_exists"), &err)
	if err := ValidateTable(table); err != nil {
		return false, err
	}
	var n int
	if err := b.db.QueryRowContext(ctx, b.dialect.tableExistsQuery(), table).Scan(&n); err != nil {
		return false, errors.Database(err, "table exists")
	}
	return n > 0, nil
}

// CreateTable creates table and its path and value indices if absent.
func (b *SQLBackend) CreateTable(ctx context.Context, table string) (err error) {
	defer observe("create_table", newTimer("create_table"), &err)
	if err := ValidateTable(table); err != nil {
		return err
	}
	for _, stmt := range b.dialect.createEntryTable(table) {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return errors.Database(err, "create table "+table)
		}
	}
	b.logger.Debugw("Ensured entry table", logger.FieldTable, table, logger.FieldDriver, b.dialect.String())
	return nil
}

// BulkRead returns every row of table ordered by path.
func (b *SQLBackend) BulkRead(ctx context.Context, table string) (_ []pathstore.Row, err error) {
	defer observe("bulk_read", newTimer("bulk_read"), &err)
	if err := ValidateTable(table); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT path, value, created_at, updated_at FROM `+table+` ORDER BY path`)
	if err != nil {
		return nil, errors.Database(err, "bulk read "+table)
	}
	defer rows.Close()

	var out []pathstore.Row
	for rows.Next() {
		var (
			path             string
			value            sql.NullString
			created, updated sql.NullTime
		)
		if err := rows.Scan(&path, &value, &created, &updated); err != nil {
			return nil, errors.Database(err, "scan "+table)
		}
		row := pathstore.Row{Path: path, CreatedAt: timePtr(created), UpdatedAt: timePtr(updated)}
		if value.Valid {
			row.Value = []byte(value.String)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Database(err, "iterate "+table)
	}
	rowsRead.WithLabelValues(table).Add(float64(len(out)))
	return out, nil
}

// BulkUpsert writes rows in one transaction, updating rows whose path exists.
func (b *SQLBackend) BulkUpsert(ctx context.Context, table string, rows []pathstore.Row) (_ int, err error) {
	defer observe("bulk_upsert", newTimer("bulk_upsert"), &err)
	if err := ValidateTable(table); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Database(err, "begin upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, b.dialect.upsertEntry(table))
	if err != nil {
		return 0, errors.Database(err, "prepare upsert")
	}
	defer stmt.Close()

	for _, r := range rows {
		var value any
		if r.Value != nil {
			value = string(r.Value)
		}
		if _, err := stmt.ExecContext(ctx, r.Path, value, nullTime(r.CreatedAt), nullTime(r.UpdatedAt)); err != nil {
			return 0, errors.Database(err, "upsert "+r.Path)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Database(err, "commit upsert")
	}
	rowsWritten.WithLabelValues(table).Add(float64(len(rows)))
	return len(rows), nil
}

// Truncate removes every row of table.
func (b *SQLBackend) Truncate(ctx context.Context, table string) (err error) {
	defer observe("truncate", newTimer("truncate"), &err)
	if err := ValidateTable(table); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, b.dialect.truncate(table)); err != nil {
		return errors.Database(err, "truncate "+table)
	}
	b.logger.Infow("Truncated table", logger.FieldTable, table)
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
