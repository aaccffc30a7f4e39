package db

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/kbmem/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// migration is one embedded SQL file. version is the numeric file prefix.
type migration struct {
	version string
	file    string
}

func listMigrations() ([]migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var out []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, errors.Newf("migration %s has no version prefix", name)
		}
		out = append(out, migration{version: version, file: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].file < out[j].file })
	return out, nil
}

// Migrate runs all pending migrations.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	return MigrateContext(context.Background(), db, logger)
}

// MigrateContext is Migrate with a caller-supplied context.
func MigrateContext(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger) error {
	pending, err := listMigrations()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range pending {
		done, err := isApplied(ctx, db, m.version)
		if err != nil {
			return errors.Wrapf(err, "check %s", m.file)
		}
		if done {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", m.file, "version", m.version)
			}
			continue
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", m.file, "version", m.version)
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"total_migrations", len(pending),
			"applied", applied,
		)
	}
	return nil
}

// isApplied reports whether version is recorded. Before 000 runs the table is
// missing, which only migration 000 may tolerate.
func isApplied(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	if err == nil {
		return exists, nil
	}
	if IsDatabaseClosed(err) {
		return false, err
	}
	if version != "000" {
		return false, errors.Wrapf(err, "schema_migrations table missing, but migration is not 000")
	}
	return false, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	body, err := migrations.ReadFile(path.Join(migrationsDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.file)
	}
	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "record %s", m.file)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit %s", m.file)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, or "" when
// no migration has run.
func SchemaVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return "", errors.Wrap(err, "read schema version")
	}
	return version.String, nil
}
