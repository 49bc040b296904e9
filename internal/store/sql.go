package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/livetemplate/accordion"
)

// dialect captures the differences between the SQL backends
type dialect struct {
	name              string
	numberedParams    bool   // $1, $2 ... instead of ?
	containerOrder    string // ORDER BY clause giving creation order
	schema            []string
	isUniqueViolation func(error) bool
}

// sqlStore implements Store over database/sql. Containers, fields and items
// live in three tables keyed by container name.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

// Name returns the backend identifier
func (s *sqlStore) Name() string {
	return s.d.name
}

// migrate creates the schema if it does not exist yet
func (s *sqlStore) migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s store: migration failed: %w", s.d.name, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects with numbered parameters
func (s *sqlStore) rebind(query string) string {
	if !s.d.numberedParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListContainers returns containers in creation order
func (s *sqlStore) ListContainers(ctx context.Context) ([]Container, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, description, template FROM lists ORDER BY "+s.d.containerOrder)
	if err != nil {
		return nil, NewStoreError(s.Name(), "list containers", err)
	}
	defer rows.Close()

	var result []Container
	for rows.Next() {
		var c Container
		if err := rows.Scan(&c.Name, &c.Description, &c.Template); err != nil {
			return nil, NewStoreError(s.Name(), "list containers", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStoreError(s.Name(), "list containers", err)
	}
	return result, nil
}

// GetContainer looks a container up by name, including its fields
func (s *sqlStore) GetContainer(ctx context.Context, name string) (*Container, error) {
	c := &Container{}
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT name, description, template FROM lists WHERE name = ?"), name).
		Scan(&c.Name, &c.Description, &c.Template)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Store: s.Name(), Container: name}
	}
	if err != nil {
		return nil, NewStoreError(s.Name(), "get container", err)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT name, rich_text FROM list_fields WHERE list_name = ? ORDER BY name"), name)
	if err != nil {
		return nil, NewStoreError(s.Name(), "get container", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.Name, &f.RichText); err != nil {
			return nil, NewStoreError(s.Name(), "get container", err)
		}
		c.Fields = append(c.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStoreError(s.Name(), "get container", err)
	}
	return c, nil
}

// CreateContainer inserts a container row
func (s *sqlStore) CreateContainer(ctx context.Context, name, description string, template int) error {
	if err := validateName(s.Name(), name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO lists (name, description, template) VALUES (?, ?, ?)"),
		name, description, template)
	if err != nil {
		if s.d.isUniqueViolation(err) {
			return &ConflictError{Store: s.Name(), Container: name}
		}
		return NewStoreError(s.Name(), "create container", err)
	}
	return nil
}

// AddField records a field on an existing container
func (s *sqlStore) AddField(ctx context.Context, container string, field Field) error {
	if field.Name == "" {
		return &ValidationError{Store: s.Name(), Field: "field name", Reason: "must not be empty"}
	}
	return s.inContainer(ctx, "add field", container, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			s.rebind("INSERT INTO list_fields (list_name, name, rich_text) VALUES (?, ?, ?)"),
			container, field.Name, field.RichText)
		if err != nil && s.d.isUniqueViolation(err) {
			return &ValidationError{Store: s.Name(), Field: "field name", Reason: fmt.Sprintf("%q already exists", field.Name)}
		}
		return err
	})
}

// ListItems returns rows in insertion order
func (s *sqlStore) ListItems(ctx context.Context, container string) ([]accordion.Item, error) {
	var items []accordion.Item
	err := s.inContainer(ctx, "list items", container, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			s.rebind("SELECT title, description FROM list_items WHERE list_name = ? ORDER BY id"), container)
		if err != nil {
			return err
		}
		defer rows.Close()

		items = []accordion.Item{}
		for rows.Next() {
			var it accordion.Item
			if err := rows.Scan(&it.Title, &it.Description); err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem appends a row and returns it as stored
func (s *sqlStore) AddItem(ctx context.Context, container string, item accordion.Item) (accordion.Item, error) {
	var stored accordion.Item
	err := s.inContainer(ctx, "add item", container, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			s.rebind("INSERT INTO list_items (list_name, title, description) VALUES (?, ?, ?) RETURNING title, description"),
			container, item.Title, item.Description).
			Scan(&stored.Title, &stored.Description)
	})
	if err != nil {
		return accordion.Item{}, err
	}
	return stored, nil
}

// Close releases the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// inContainer runs fn in a transaction after checking the container exists
func (s *sqlStore) inContainer(ctx context.Context, op, container string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStoreError(s.Name(), op, err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM lists WHERE name = ?"), container).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Store: s.Name(), Container: container}
	}
	if err != nil {
		return NewStoreError(s.Name(), op, err)
	}

	if err := fn(tx); err != nil {
		var validation *ValidationError
		if errors.As(err, &validation) {
			return err
		}
		return NewStoreError(s.Name(), op, err)
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError(s.Name(), op, err)
	}
	return nil
}
