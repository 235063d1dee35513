package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 2

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// OpenDB opens the SQLite database at path and brings its schema up to date.
func OpenDB(ctx context.Context, path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := "file:" + path
	for i, p := range pragmas {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		dsn += sep + "_pragma=" + p
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SchemaVersion returns the applied schema version, 0 for a new database.
func SchemaVersion(ctx context.Context, db *sqlx.DB) int {
	var version int
	if err := db.GetContext(ctx, &version, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		return 0
	}
	return version
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	version := SchemaVersion(ctx, db)

	steps := []struct {
		version int
		schema  string
	}{
		{1, schemaV1},
		{2, schemaV2},
	}

	for _, step := range steps {
		if version >= step.version {
			continue
		}
		if err := withTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, step.schema); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "UPDATE schema_version SET version = ?", step.version)
			return err
		}); err != nil {
			return fmt.Errorf("migrate schema to v%d: %w", step.version, err)
		}
	}
	return nil
}

// schemaV1 creates the identity tables.
const schemaV1 = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);
	INSERT INTO schema_version (version)
		SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM schema_version);

	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY NOT NULL,
		email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY NOT NULL,
		user_id    TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
`

// schemaV2 creates the bookmark tables.
const schemaV2 = `
	CREATE TABLE IF NOT EXISTS bookmark_groups (
		id         TEXT PRIMARY KEY NOT NULL,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_bookmark_groups_user ON bookmark_groups(user_id, sort_order);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id          TEXT PRIMARY KEY NOT NULL,
		group_id    TEXT NOT NULL,
		title       TEXT NOT NULL,
		url         TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		favicon_url TEXT NOT NULL DEFAULT '',
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		FOREIGN KEY (group_id) REFERENCES bookmark_groups(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_group ON bookmarks(group_id, sort_order);
`

// withTx runs fn in a transaction, committing only if fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
