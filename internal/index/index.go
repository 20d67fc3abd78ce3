// Package index provides a SQLite-backed inventory of scanned checkpoint
// files, so large model directories can be decoded once and queried later.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path         TEXT PRIMARY KEY,
	format       TEXT NOT NULL DEFAULT '',
	tensor_count INTEGER NOT NULL DEFAULT 0,
	total_size   INTEGER NOT NULL DEFAULT 0,
	parameters   INTEGER NOT NULL DEFAULT 0,
	indexed_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tensors (
	file_path    TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	dtype        TEXT NOT NULL DEFAULT '',
	shape        TEXT NOT NULL DEFAULT '',
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	num_elements INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tensors_file ON tensors(file_path);
CREATE INDEX IF NOT EXISTS idx_tensors_name ON tensors(name);
`

// DB wraps a sql.DB with inventory-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
