package runtime

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/store"
)

// FetchResult is the outcome of reading a list's items
type FetchResult struct {
	Items []accordion.Item
	Err   error
	Kind  store.Kind
}

// OK reports whether the fetch succeeded
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// AddResult is the outcome of appending an item
type AddResult struct {
	Item accordion.Item
	Err  error
	Kind store.Kind
}

// OK reports whether the add succeeded
func (r AddResult) OK() bool {
	return r.Err == nil
}

// FetchItems reads all rows of list in store order. Failures are logged and
// returned in the result.
func FetchItems(ctx context.Context, s store.Store, list string) FetchResult {
	log := logging.Named("dataaccess").With(zap.String("list", list))

	if err := requireList(s, list); err != nil {
		log.Warn("fetch skipped", zap.Error(err))
		return FetchResult{Err: err, Kind: store.KindValidation}
	}

	items, err := s.ListItems(ctx, list)
	if err != nil {
		kind := store.Classify(err)
		log.Error("error fetching data", zap.Stringer("kind", kind), zap.Error(err))
		return FetchResult{Err: err, Kind: kind}
	}
	if items == nil {
		items = []accordion.Item{}
	}
	log.Debug("fetched items", zap.Int("count", len(items)))
	return FetchResult{Items: items}
}

// AddItem appends one row to list and returns the row as stored. An empty
// list reference fails validation without a store call.
func AddItem(ctx context.Context, s store.Store, list, title, description string) AddResult {
	log := logging.Named("dataaccess").With(zap.String("list", list))

	if err := requireList(s, list); err != nil {
		log.Warn("add skipped", zap.Error(err))
		return AddResult{Err: err, Kind: store.KindValidation}
	}

	item, err := s.AddItem(ctx, list, accordion.Item{Title: title, Description: description})
	if err != nil {
		kind := store.Classify(err)
		log.Error("error adding item", zap.Stringer("kind", kind), zap.Error(err))
		return AddResult{Err: err, Kind: kind}
	}
	log.Info("added item", zap.String("title", item.Title))
	return AddResult{Item: item}
}

func requireList(s store.Store, list string) error {
	if strings.TrimSpace(list) == "" {
		return &store.ValidationError{Store: s.Name(), Field: "list", Reason: "no list configured"}
	}
	return nil
}
