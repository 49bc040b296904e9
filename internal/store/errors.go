package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a store failure so callers can branch without inspecting messages.
type Kind int

const (
	KindNone        Kind = iota // no error
	KindNotFound                // container does not exist
	KindConflict                // container already exists
	KindValidation              // bad input, never sent to the backend
	KindUnavailable             // timeout, connection failure, circuit open, 5xx/429
	KindStore                   // any other backend failure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not-found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	default:
		return "store"
	}
}

// StoreError wraps errors with store context
type StoreError struct {
	Store     string // Backend name (e.g., "sqlite")
	Operation string // Operation that failed (e.g., "list items")
	Err       error  // Underlying error
	Retryable bool   // Whether this error is retryable
}

func (e *StoreError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("store %q %s failed: %v", e.Store, e.Operation, e.Err)
	}
	return fmt.Sprintf("store %q: %v", e.Store, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

// NotFoundError means the named container does not exist
type NotFoundError struct {
	Store     string
	Container string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store %q: list %q does not exist", e.Store, e.Container)
}

// ConflictError means a container with the name already exists
type ConflictError struct {
	Store     string
	Container string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store %q: list %q already exists", e.Store, e.Container)
}

// ValidationError represents invalid input or configuration
type ValidationError struct {
	Store  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("store %q: invalid %s: %s", e.Store, e.Field, e.Reason)
	}
	return fmt.Sprintf("store %q: validation failed: %s", e.Store, e.Reason)
}

// ConnectionError represents a connection failure
type ConnectionError struct {
	Store   string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store %q: connection to %s failed: %v", e.Store, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// HTTPError represents an error response from a remote list API
type HTTPError struct {
	Store      string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("store %q: HTTP %d %s: %s", e.Store, e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("store %q: HTTP %d %s", e.Store, e.StatusCode, e.Status)
}

// IsRetryable returns true for 5xx errors and 429 (rate limit)
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// CircuitOpenError indicates the circuit breaker is open
type CircuitOpenError struct {
	Store string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("store %q: circuit breaker open, service temporarily unavailable", e.Store)
}

// NewStoreError creates a StoreError with retryable detection
func NewStoreError(store, operation string, err error) *StoreError {
	return &StoreError{
		Store:     store,
		Operation: operation,
		Err:       err,
		Retryable: isRetryableError(err),
	}
}

// IsNotFound reports whether err means the container does not exist.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

// Classify maps an error to its Kind using the error types in its chain.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return KindConflict
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusNotFound:
			return KindNotFound
		case httpErr.StatusCode == http.StatusConflict:
			return KindConflict
		case httpErr.StatusCode == http.StatusBadRequest:
			return KindValidation
		case httpErr.IsRetryable():
			return KindUnavailable
		default:
			return KindStore
		}
	}

	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return KindUnavailable
	}

	if isRetryableError(err) {
		return KindUnavailable
	}

	return KindStore
}

// isRetryableError checks if an error is transient
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.Retryable {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// UserFriendlyMessage returns a message suitable for rendering in the widget
func UserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized:
			return "Authentication required."
		case http.StatusForbidden:
			return "Access denied."
		}
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return fmt.Sprintf("Invalid data: %s", validation.Reason)
	}

	switch Classify(err) {
	case KindNotFound:
		return "The list could not be found."
	case KindConflict:
		return "The list already exists."
	case KindUnavailable:
		return "The list service is temporarily unavailable. Please try again later."
	default:
		return "The list service returned an error. Please try again."
	}
}
