package storage

import (
	"fmt"
	"strings"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/ltree"
)

// Dialect selects the SQL flavour of a backing database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return 0, errors.Newf("unknown database driver %q", driver)
	}
}

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// placeholders returns n bind parameters separated by commas.
func (d Dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

func (d Dialect) tableExistsQuery() string {
	if d == Postgres {
		return `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1`
	}
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (d Dialect) createEntryTable(table string) []string {
	if d == Postgres {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				path TEXT NOT NULL UNIQUE,
				value JSONB,
				created_at TIMESTAMPTZ,
				updated_at TIMESTAMPTZ
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_path ON %s (path)`, table, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_value ON %s USING GIN (value)`, table, table),
		}
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			value TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_path ON %s (path)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_value ON %s (value)`, table, table),
	}
}

func (d Dialect) truncate(table string) string {
	if d == Postgres {
		return fmt.Sprintf(`TRUNCATE TABLE %s`, table)
	}
	return fmt.Sprintf(`DELETE FROM %s`, table)
}

func (d Dialect) upsertEntry(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (path, value, created_at, updated_at)
		VALUES (%s)
		ON CONFLICT (path) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`, table, d.placeholders(4))
}

// ValidateTable rejects table names that cannot be interpolated safely.
func ValidateTable(table string) error {
	if !ltree.ValidLabel(table) {
		return errors.Wrapf(errors.ErrValidation, "table name %q", table)
	}
	return nil
}
