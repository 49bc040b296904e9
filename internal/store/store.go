// Package store provides the Remote List Store backends the widget reads items
// from and appends items to. A store holds named containers (lists); each
// container holds ordered rows with a title and a rich-text description.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/config"
)

// GenericListTemplate is the template kind for a plain list of items.
const GenericListTemplate = 100

// Container describes a list held by the store
type Container struct {
	Name        string  `json:"Title"`
	Description string  `json:"Description,omitempty"`
	Template    int     `json:"BaseTemplate,omitempty"`
	Fields      []Field `json:"Fields,omitempty"`
}

// Field is an extra column added to a container
type Field struct {
	Name     string `json:"Title"`
	RichText bool   `json:"RichText"`
}

// Store is the interface for list backends.
// Containers are addressed by name; names are the only key.
type Store interface {
	// Name returns the backend identifier used in errors and logs
	Name() string

	// ListContainers enumerates all containers
	ListContainers(ctx context.Context) ([]Container, error)

	// GetContainer looks a container up by name.
	// Returns *NotFoundError when it does not exist.
	GetContainer(ctx context.Context, name string) (*Container, error)

	// CreateContainer adds a container.
	// Returns *ConflictError when one with the name already exists.
	CreateContainer(ctx context.Context, name, description string, template int) error

	// AddField adds a field to an existing container
	AddField(ctx context.Context, container string, field Field) error

	// ListItems returns the container's rows in store order
	ListItems(ctx context.Context, container string) ([]accordion.Item, error)

	// AddItem appends a row and returns it as stored
	AddItem(ctx context.Context, container string, item accordion.Item) (accordion.Item, error)

	// Close releases any resources held by the store
	Close() error
}

// Open creates the backend selected by cfg, wrapped with the container cache
// when one is configured.
func Open(cfg config.StoreConfig) (Store, error) {
	s, err := open(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.IsCacheEnabled() {
		return NewCachedStore(s, cfg.GetCacheTTL()), nil
	}
	return s, nil
}

func open(cfg config.StoreConfig) (Store, error) {
	switch cfg.GetType() {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.GetDB())
	case "pg":
		return NewPostgresStore(cfg.GetDSN())
	case "rest":
		return NewRESTStoreWithConfig(cfg)
	default:
		return nil, &UnsupportedStoreError{Type: cfg.Type}
	}
}

// UnsupportedStoreError is returned for unknown backend types
type UnsupportedStoreError struct {
	Type string
}

func (e *UnsupportedStoreError) Error() string {
	return "unsupported store type: " + e.Type
}

// maxNameLength bounds container names in every backend
const maxNameLength = 255

// validateName checks a container name before it reaches a backend
func validateName(store, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Store: store, Field: "list name", Reason: "must not be empty"}
	}
	if len(name) > maxNameLength {
		return &ValidationError{Store: store, Field: "list name", Reason: fmt.Sprintf("longer than %d characters", maxNameLength)}
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{Store: store, Field: "list name", Reason: "must not contain slashes"}
	}
	if isDotSegment(name) {
		return &ValidationError{Store: store, Field: "list name", Reason: `must not be "." or ".."`}
	}
	return nil
}

// isDotSegment reports names that URL path cleaning would drop
func isDotSegment(name string) bool {
	return name == "." || name == ".."
}
