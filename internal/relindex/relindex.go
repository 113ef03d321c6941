// Package relindex maintains the derived plan-relationship cache in
// SQLite. Everything in it is rebuildable from the store: deleting the
// database file never loses primary data.
package relindex

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plan_links (
	plan_id            TEXT PRIMARY KEY,
	workspace_id       TEXT NOT NULL,
	linked_todos       TEXT NOT NULL DEFAULT '[]',
	linked_checkpoints TEXT NOT NULL DEFAULT '[]',
	completion_pct     INTEGER NOT NULL DEFAULT 0,
	tags               TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_plan_links_workspace ON plan_links(workspace_id);

CREATE TABLE IF NOT EXISTS workspace_meta (
	workspace_id     TEXT PRIMARY KEY,
	content_checksum TEXT NOT NULL DEFAULT ''
);
`

// DB wraps a sql.DB with relationship-index operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite index and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("relindex: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("relindex: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("relindex: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
