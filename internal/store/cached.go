package store

import (
	"context"
	"time"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/cache"
)

const containersKey = "containers"

// CachedStore wraps a Store and caches the container listing. Items are never
// cached: the panel must show what the store holds at mount time.
type CachedStore struct {
	inner Store
	cache *cache.MemoryCache[[]Container]
	ttl   time.Duration
}

// NewCachedStore creates a new cached store wrapper
func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: cache.NewMemoryCache[[]Container](),
		ttl:   ttl,
	}
}

// Name returns the wrapped backend name
func (s *CachedStore) Name() string {
	return s.inner.Name()
}

// ListContainers serves the listing from cache when fresh
func (s *CachedStore) ListContainers(ctx context.Context) ([]Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(containersKey); ok {
		return append([]Container(nil), cached...), nil
	}

	containers, err := s.inner.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(containersKey, containers, s.ttl)
	return append([]Container(nil), containers...), nil
}

// GetContainer always reads through
func (s *CachedStore) GetContainer(ctx context.Context, name string) (*Container, error) {
	return s.inner.GetContainer(ctx, name)
}

// CreateContainer creates through and drops the cached listing
func (s *CachedStore) CreateContainer(ctx context.Context, name, description string, template int) error {
	err := s.inner.CreateContainer(ctx, name, description, template)
	if err == nil {
		s.cache.Invalidate(containersKey)
	}
	return err
}

// AddField drops the cached listing since it carries field names
func (s *CachedStore) AddField(ctx context.Context, container string, field Field) error {
	err := s.inner.AddField(ctx, container, field)
	if err == nil {
		s.cache.Invalidate(containersKey)
	}
	return err
}

func (s *CachedStore) ListItems(ctx context.Context, container string) ([]accordion.Item, error) {
	return s.inner.ListItems(ctx, container)
}

func (s *CachedStore) AddItem(ctx context.Context, container string, item accordion.Item) (accordion.Item, error) {
	return s.inner.AddItem(ctx, container, item)
}

// Invalidate drops the cached listing
func (s *CachedStore) Invalidate() {
	s.cache.InvalidateAll()
}

// Close stops the cache and closes the wrapped store
func (s *CachedStore) Close() error {
	s.cache.Stop()
	return s.inner.Close()
}
