package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS lists (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		template INTEGER NOT NULL DEFAULT 100,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS list_fields (
		list_name TEXT NOT NULL REFERENCES lists(name),
		name TEXT NOT NULL,
		rich_text INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (list_name, name)
	)`,
	`CREATE TABLE IF NOT EXISTS list_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		list_name TEXT NOT NULL REFERENCES lists(name),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS list_items_by_list ON list_items (list_name, id)`,
}

// SQLiteStore keeps lists in a local SQLite database file
type SQLiteStore struct {
	*sqlStore
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, &ValidationError{Store: "sqlite", Field: "db", Reason: "database path is required"}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite store: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to connect: %w", err)
	}

	s := &SQLiteStore{
		sqlStore: &sqlStore{
			db: db,
			d: dialect{
				name:              "sqlite",
				containerOrder:    "rowid",
				schema:            sqliteSchema,
				isUniqueViolation: isSQLiteUniqueViolation,
			},
		},
		path: path,
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
