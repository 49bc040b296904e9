package store

import (
	"context"
	"sync"

	"github.com/livetemplate/accordion"
)

// MemoryStore keeps containers in process memory. It backs tests and the
// "memory" store type for demos; contents are lost on exit.
type MemoryStore struct {
	mu         sync.RWMutex
	order      []string
	containers map[string]*memoryContainer
}

type memoryContainer struct {
	info  Container
	items []accordion.Item
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		containers: make(map[string]*memoryContainer),
	}
}

// Name returns the backend identifier
func (s *MemoryStore) Name() string {
	return "memory"
}

// ListContainers returns containers in creation order
func (s *MemoryStore) ListContainers(ctx context.Context) ([]Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Container, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.containers[name].snapshot())
	}
	return result, nil
}

// GetContainer looks a container up by name
func (s *MemoryStore) GetContainer(ctx context.Context, name string) (*Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.containers[name]
	if !ok {
		return nil, &NotFoundError{Store: s.Name(), Container: name}
	}
	info := c.snapshot()
	return &info, nil
}

// CreateContainer adds an empty container
func (s *MemoryStore) CreateContainer(ctx context.Context, name, description string, template int) error {
	if err := validateName(s.Name(), name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.containers[name]; ok {
		return &ConflictError{Store: s.Name(), Container: name}
	}
	s.containers[name] = &memoryContainer{
		info: Container{Name: name, Description: description, Template: template},
	}
	s.order = append(s.order, name)
	return nil
}

// AddField records a field on the container
func (s *MemoryStore) AddField(ctx context.Context, container string, field Field) error {
	if field.Name == "" {
		return &ValidationError{Store: s.Name(), Field: "field name", Reason: "must not be empty"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return &NotFoundError{Store: s.Name(), Container: container}
	}
	c.info.Fields = append(c.info.Fields, field)
	return nil
}

// ListItems returns the container's rows in insertion order
func (s *MemoryStore) ListItems(ctx context.Context, container string) ([]accordion.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.containers[container]
	if !ok {
		return nil, &NotFoundError{Store: s.Name(), Container: container}
	}
	items := make([]accordion.Item, len(c.items))
	copy(items, c.items)
	return items, nil
}

// AddItem appends a row
func (s *MemoryStore) AddItem(ctx context.Context, container string, item accordion.Item) (accordion.Item, error) {
	if err := ctx.Err(); err != nil {
		return accordion.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return accordion.Item{}, &NotFoundError{Store: s.Name(), Container: container}
	}
	c.items = append(c.items, item)
	return item, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (c *memoryContainer) snapshot() Container {
	info := c.info
	info.Fields = append([]Field(nil), c.info.Fields...)
	return info
}
