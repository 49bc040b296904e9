package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS lists (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		template INTEGER NOT NULL DEFAULT 100,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS list_fields (
		list_name TEXT NOT NULL REFERENCES lists(name),
		name TEXT NOT NULL,
		rich_text BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (list_name, name)
	)`,
	`CREATE TABLE IF NOT EXISTS list_items (
		id BIGSERIAL PRIMARY KEY,
		list_name TEXT NOT NULL REFERENCES lists(name),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS list_items_by_list ON list_items (list_name, id)`,
}

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = pq.ErrorCode("23505")

// PostgresStore keeps lists in a PostgreSQL database
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to the database at dsn and migrates the schema
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, &ValidationError{Store: "pg", Field: "dsn", Reason: "database connection required (set store.dsn or DATABASE_URL)"}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg store: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Store: "pg", Address: "postgres", Err: err}
	}

	s := &PostgresStore{
		sqlStore: &sqlStore{
			db: db,
			d: dialect{
				name:              "pg",
				numberedParams:    true,
				containerOrder:    "created_at, name",
				schema:            postgresSchema,
				isUniqueViolation: isPostgresUniqueViolation,
			},
		},
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
