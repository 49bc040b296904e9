// Package runtime holds the per-connection widget state: the read-mode panel,
// the edit-mode form, and the configuration surface, each driven by actions
// from the browser and by completions of store calls.
package runtime

import (
	"context"
	"time"

	"github.com/livetemplate/livetemplate"
)

// ActionHandler is implemented by every block a connection can drive.
type ActionHandler interface {
	HandleAction(action string, data map[string]interface{}) error
	// TakeAlert returns and clears the pending user-facing alert, if any.
	TakeAlert() string
	// Close releases resources and waits for in-flight store calls.
	Close() error
}

// DefaultStoreTimeout bounds each store call when none is configured.
const DefaultStoreTimeout = 10 * time.Second

// actionContext wraps the raw action payload for typed field access.
func actionContext(action string, data map[string]interface{}) *livetemplate.Context {
	if data == nil {
		data = map[string]interface{}{}
	}
	return livetemplate.NewContext(context.Background(), action, data)
}
