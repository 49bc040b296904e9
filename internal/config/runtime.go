package config

import (
	"os"
	"sync"
)

// RuntimeConfig stores configuration set at runtime via CLI flags.
// These values are not persisted to config files.
type RuntimeConfig struct {
	mu       sync.RWMutex
	operator string
}

var globalRuntime = &RuntimeConfig{}

// SetOperator sets the display name of the user the widget renders for.
// If empty, defaults to the current user from $USER environment variable.
func SetOperator(op string) {
	globalRuntime.mu.Lock()
	defer globalRuntime.mu.Unlock()

	if op == "" {
		op = os.Getenv("USER")
	}
	globalRuntime.operator = op
}

// GetOperator returns the current user display name.
// Returns empty string if not set and $USER is not available.
func GetOperator() string {
	globalRuntime.mu.RLock()
	defer globalRuntime.mu.RUnlock()
	return globalRuntime.operator
}
