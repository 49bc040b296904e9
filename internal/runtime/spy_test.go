package runtime

import (
	"context"
	"sync"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/store"
)

// spyStore counts calls on a MemoryStore and can hold ListItems per list
type spyStore struct {
	*store.MemoryStore

	mu      sync.Mutex
	calls   map[string]int
	gates   map[string]chan struct{}
	addGate chan struct{}
	failGet error
	failAdd error
}

func newSpyStore() *spyStore {
	return &spyStore{
		MemoryStore: store.NewMemoryStore(),
		calls:       make(map[string]int),
		gates:       make(map[string]chan struct{}),
	}
}

// seed creates list with items, bypassing the counters
func (s *spyStore) seed(list string, items ...accordion.Item) *spyStore {
	ctx := context.Background()
	if err := s.MemoryStore.CreateContainer(ctx, list, "", store.GenericListTemplate); err != nil {
		panic(err)
	}
	for _, it := range items {
		if _, err := s.MemoryStore.AddItem(ctx, list, it); err != nil {
			panic(err)
		}
	}
	return s
}

// hold makes ListItems for list block until the returned func is called
func (s *spyStore) hold(list string) func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[list] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// holdAdd makes AddItem block until the returned func is called
func (s *spyStore) holdAdd() func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.addGate = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *spyStore) count(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *spyStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *spyStore) reads() int {
	return s.callCount("ListContainers") + s.callCount("GetContainer") + s.callCount("ListItems")
}

func (s *spyStore) writes() int {
	return s.callCount("CreateContainer") + s.callCount("AddField") + s.callCount("AddItem")
}

func (s *spyStore) ListContainers(ctx context.Context) ([]store.Container, error) {
	s.count("ListContainers")
	return s.MemoryStore.ListContainers(ctx)
}

func (s *spyStore) GetContainer(ctx context.Context, name string) (*store.Container, error) {
	s.count("GetContainer")
	if s.failGet != nil {
		return nil, s.failGet
	}
	return s.MemoryStore.GetContainer(ctx, name)
}

func (s *spyStore) CreateContainer(ctx context.Context, name, description string, template int) error {
	s.count("CreateContainer")
	return s.MemoryStore.CreateContainer(ctx, name, description, template)
}

func (s *spyStore) AddField(ctx context.Context, container string, field store.Field) error {
	s.count("AddField")
	return s.MemoryStore.AddField(ctx, container, field)
}

func (s *spyStore) ListItems(ctx context.Context, list string) ([]accordion.Item, error) {
	s.count("ListItems")
	s.mu.Lock()
	gate := s.gates[list]
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.MemoryStore.ListItems(ctx, list)
}

func (s *spyStore) AddItem(ctx context.Context, list string, item accordion.Item) (accordion.Item, error) {
	s.count("AddItem")
	s.mu.Lock()
	gate := s.addGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return accordion.Item{}, ctx.Err()
		}
	}
	if s.failAdd != nil {
		return accordion.Item{}, s.failAdd
	}
	return s.MemoryStore.AddItem(ctx, list, item)
}
