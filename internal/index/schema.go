// Package index keeps a SQLite catalog of a vault: one row per note with its
// checksum, frontmatter, tags and triage state, plus optional FTS5 search
// over note bodies.
//
// The catalog is derived data. When its layout version does not match the
// binary's, every table is dropped and the next sync rebuilds it.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// catalogVersion changes whenever the table layout does. The value stored in
// PRAGMA user_version also records whether the FTS5 table was built.
const (
	catalogVersion = 2
	layoutVersion  = catalogVersion<<1 | ftsLayout
)

var tables = []string{
	`CREATE TABLE notes (
		path        TEXT PRIMARY KEY,
		checksum    TEXT NOT NULL DEFAULT '',
		frontmatter TEXT NOT NULL DEFAULT '{}',
		tags        TEXT NOT NULL DEFAULT '[]',
		body        TEXT NOT NULL DEFAULT '',
		triage      INTEGER NOT NULL DEFAULT 0,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE note_tags (
		path TEXT NOT NULL REFERENCES notes(path) ON DELETE CASCADE,
		tag  TEXT NOT NULL,
		PRIMARY KEY (path, tag)
	) WITHOUT ROWID`,
	`CREATE INDEX idx_note_tags_tag ON note_tags(tag)`,
	`CREATE INDEX idx_notes_triage ON notes(triage) WHERE triage = 1`,
}

// DB is an open catalog.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the catalog at dsn, rebuilding it when it was
// written by another catalog version.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("index: read catalog version: %w", err)
	}
	if version == layoutVersion {
		return nil
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, name := range []string{"note_tags", "notes_fts", "notes"} {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + name); err != nil {
			return fmt.Errorf("index: drop %s: %w", name, err)
		}
	}
	for _, stmt := range tables {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("index: apply core schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit migration: %w", err)
	}

	if err := initFTS(conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, layoutVersion)); err != nil {
		return fmt.Errorf("index: write catalog version: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
