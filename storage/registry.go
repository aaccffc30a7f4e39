package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
)

// SQLRegistry records knowledge bases, link mounts and links in three
// tables derived from a base name: <base>_info, <base>_link_mount and
// <base>_link.
type SQLRegistry struct {
	db      *sql.DB
	dialect Dialect
	base    string
	logger  *zap.SugaredLogger
}

// NewSQLRegistry creates a registry over db. Call EnsureSchema before use.
func NewSQLRegistry(db *sql.DB, dialect Dialect, base string, log *zap.SugaredLogger) (*SQLRegistry, error) {
	if err := ValidateTable(base); err != nil {
		return nil, err
	}
	return &SQLRegistry{db: db, dialect: dialect, base: base, logger: logger.OrNop(log)}, nil
}

func (r *SQLRegistry) infoTable() string  { return r.base + "_info" }
func (r *SQLRegistry) mountTable() string { return r.base + "_link_mount" }
func (r *SQLRegistry) linkTable() string  { return r.base + "_link" }

// EnsureSchema creates the registry tables if they are absent.
func (r *SQLRegistry) EnsureSchema(ctx context.Context) error {
	ts := "TIMESTAMP"
	if r.dialect == Postgres {
		ts = "TIMESTAMPTZ"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			knowledge_base TEXT PRIMARY KEY,
			description TEXT,
			created_at %s NOT NULL
		)`, r.infoTable(), ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			link_name TEXT NOT NULL UNIQUE,
			knowledge_base TEXT NOT NULL,
			mount_path TEXT NOT NULL,
			description TEXT,
			created_at %s NOT NULL
		)`, r.mountTable(), ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			parent_node_kb TEXT NOT NULL,
			parent_path TEXT NOT NULL,
			link_name TEXT NOT NULL,
			created_at %s NOT NULL
		)`, r.linkTable(), ts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_name ON %s (link_name)`, r.linkTable(), r.linkTable()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_kb ON %s (knowledge_base)`, r.mountTable(), r.mountTable()),
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Database(err, "ensure registry schema")
		}
	}
	return nil
}

func (r *SQLRegistry) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, errors.Database(err, "registry lookup")
	}
	return n > 0, nil
}

func (r *SQLRegistry) kbExists(ctx context.Context, kb string) (bool, error) {
	return r.exists(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE knowledge_base = %s`, r.infoTable(), r.dialect.placeholder(1)), kb)
}

// AddKB records a knowledge base.
func (r *SQLRegistry) AddKB(ctx context.Context, name, description string) error {
	found, err := r.kbExists(ctx, name)
	if err != nil {
		return err
	}
	if found {
		return errors.Wrapf(errors.ErrKBAlreadyExists, "register %q", name)
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (knowledge_base, description, created_at) VALUES (%s)`,
			r.infoTable(), r.dialect.placeholders(3)),
		name, description, time.Now().UTC())
	if err != nil {
		return errors.Database(err, "insert kb "+name)
	}
	r.logger.Debugw("Registered knowledge base", logger.FieldKB, name)
	return nil
}

// RemoveKB forgets a knowledge base with its mounts and links.
func (r *SQLRegistry) RemoveKB(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Database(err, "begin remove kb")
	}
	defer tx.Rollback()

	p := r.dialect.placeholder(1)
	stmts := []string{
		fmt.Sprintf(`DELETE FROM %s WHERE parent_node_kb = %s`, r.linkTable(), p),
		fmt.Sprintf(`DELETE FROM %s WHERE knowledge_base = %s`, r.mountTable(), p),
		fmt.Sprintf(`DELETE FROM %s WHERE knowledge_base = %s`, r.infoTable(), p),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return errors.Database(err, "remove kb "+name)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Database(err, "commit remove kb")
	}
	return nil
}

// AddLinkMount records mount at path in kb. Mount names are unique across
// all knowledge bases.
func (r *SQLRegistry) AddLinkMount(ctx context.Context, kb, path, mount, description string) error {
	found, err := r.kbExists(ctx, kb)
	if err != nil {
		return err
	}
	if !found {
		return errors.Wrapf(errors.ErrKBNotFound, "mount %q", mount)
	}
	taken, err := r.exists(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE link_name = %s`, r.mountTable(), r.dialect.placeholder(1)), mount)
	if err != nil {
		return err
	}
	if taken {
		return errors.Wrapf(errors.ErrPathAlreadyExists, "link mount %q", mount)
	}

	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, link_name, knowledge_base, mount_path, description, created_at) VALUES (%s)`,
			r.mountTable(), r.dialect.placeholders(6)),
		uuid.NewString(), mount, kb, path, description, time.Now().UTC())
	if err != nil {
		return errors.Database(err, "insert link mount "+mount)
	}
	return nil
}

// AddLink records a link named linkName from parentPath in kb. The link
// must name an existing mount.
func (r *SQLRegistry) AddLink(ctx context.Context, kb, parentPath, linkName string) error {
	found, err := r.kbExists(ctx, kb)
	if err != nil {
		return err
	}
	if !found {
		return errors.Wrapf(errors.ErrKBNotFound, "link %q", linkName)
	}
	mounted, err := r.exists(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE link_name = %s`, r.mountTable(), r.dialect.placeholder(1)), linkName)
	if err != nil {
		return err
	}
	if !mounted {
		return errors.Wrapf(errors.ErrPathNotFound, "link mount %q", linkName)
	}

	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, parent_node_kb, parent_path, link_name, created_at) VALUES (%s)`,
			r.linkTable(), r.dialect.placeholders(5)),
		uuid.NewString(), kb, parentPath, linkName, time.Now().UTC())
	if err != nil {
		return errors.Database(err, "insert link "+linkName)
	}
	return nil
}

// KBDescription returns the recorded description of kb.
func (r *SQLRegistry) KBDescription(ctx context.Context, kb string) (string, error) {
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT description FROM %s WHERE knowledge_base = %s`, r.infoTable(), r.dialect.placeholder(1)),
		kb).Scan(&desc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(errors.ErrKBNotFound, "describe %q", kb)
	}
	if err != nil {
		return "", errors.Database(err, "describe kb "+kb)
	}
	return desc.String, nil
}

// LinksTo returns the parent paths linking to mount, ordered by path.
func (r *SQLRegistry) LinksTo(ctx context.Context, mount string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT parent_path FROM %s WHERE link_name = %s ORDER BY parent_path`,
			r.linkTable(), r.dialect.placeholder(1)), mount)
	if err != nil {
		return nil, errors.Database(err, "links to "+mount)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Database(err, "scan link")
		}
		out = append(out, p)
	}
	return out, errors.Database(rows.Err(), "iterate links")
}
