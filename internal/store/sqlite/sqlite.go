// Package sqlite is the reference store adapter: a property-graph
// catalog (entities plus typed relationships) in a single SQLite
// file. It implements the fixed query catalog with named binds; no
// query text is ever assembled from caller input.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	brand        TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	weight_grams REAL NOT NULL DEFAULT 0,
	price_usd    REAL NOT NULL DEFAULT 0,
	source_url   TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
CREATE INDEX IF NOT EXISTS idx_entities_brand ON entities(brand COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS relationships (
	src      TEXT NOT NULL,
	rel_type TEXT NOT NULL,
	dst      TEXT NOT NULL,
	PRIMARY KEY (src, rel_type, dst)
);

CREATE INDEX IF NOT EXISTS idx_relationships_dst ON relationships(dst);
`

// Store is a SQLite-backed catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the catalog database at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	dsn := "file:" + path
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog db: %w", err)
	}

	// Single connection: an in-memory db exists per connection, and
	// multi-statement writes must not interleave across the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}
