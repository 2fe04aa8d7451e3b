// Package store provides the SQLite-backed persistence layer: document
// snapshots, per-block metadata with mark-and-sweep garbage collection,
// and the lease records that arbitrate single-writer access.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS block_meta (
	id                  TEXT PRIMARY KEY,
	doc_id              TEXT NOT NULL,
	block_id            TEXT NOT NULL,
	linked_requirements TEXT NOT NULL DEFAULT '[]',
	provenance          TEXT NOT NULL DEFAULT 'manual'
);

CREATE INDEX IF NOT EXISTS idx_block_meta_doc ON block_meta(doc_id);

CREATE TABLE IF NOT EXISTS locks (
	doc_id     TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	expires_at DATETIME NOT NULL
);
`

// DB wraps a sql.DB with document-store operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
