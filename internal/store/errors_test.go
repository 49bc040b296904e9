package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"not found", &NotFoundError{Store: "t", Container: "x"}, KindNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", &NotFoundError{Store: "t"}), KindNotFound},
		{"conflict", &ConflictError{Store: "t"}, KindConflict},
		{"validation", &ValidationError{Store: "t", Reason: "bad"}, KindValidation},
		{"http 404", &HTTPError{StatusCode: http.StatusNotFound}, KindNotFound},
		{"http 409", &HTTPError{StatusCode: http.StatusConflict}, KindConflict},
		{"http 400", &HTTPError{StatusCode: http.StatusBadRequest}, KindValidation},
		{"http 503", &HTTPError{StatusCode: http.StatusServiceUnavailable}, KindUnavailable},
		{"http 429", &HTTPError{StatusCode: http.StatusTooManyRequests}, KindUnavailable},
		{"http 403", &HTTPError{StatusCode: http.StatusForbidden}, KindStore},
		{"circuit open", &CircuitOpenError{Store: "t"}, KindUnavailable},
		{"connection", &ConnectionError{Store: "t", Err: errors.New("refused")}, KindUnavailable},
		{"deadline", context.DeadlineExceeded, KindUnavailable},
		{"plain", errors.New("boom"), KindStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "not-found", KindNotFound.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "unavailable", KindUnavailable.String())
	assert.Equal(t, "store", KindStore.String())
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := &NotFoundError{Store: "sqlite", Container: "FAQ"}
	err := NewStoreError("sqlite", "list items", inner)

	assert.ErrorIs(t, err, inner)
	assert.False(t, err.IsRetryable())
	assert.Contains(t, err.Error(), `store "sqlite" list items failed`)
}

func TestNewStoreErrorRetryable(t *testing.T) {
	err := NewStoreError("rest", "request", &ConnectionError{Store: "rest", Address: "example.com", Err: errors.New("reset")})
	assert.True(t, err.IsRetryable())
}

func TestHTTPErrorMessage(t *testing.T) {
	err := &HTTPError{Store: "rest", StatusCode: 409, Status: "Conflict", Body: "list exists"}
	assert.Equal(t, `store "rest": HTTP 409 Conflict: list exists`, err.Error())

	err = &HTTPError{Store: "rest", StatusCode: 500, Status: "Internal Server Error"}
	assert.Equal(t, `store "rest": HTTP 500 Internal Server Error`, err.Error())
	assert.True(t, err.IsRetryable())
}

func TestUserFriendlyMessage(t *testing.T) {
	assert.Equal(t, "", UserFriendlyMessage(nil))
	assert.Equal(t, "Authentication required.", UserFriendlyMessage(&HTTPError{StatusCode: 401}))
	assert.Equal(t, "Access denied.", UserFriendlyMessage(&HTTPError{StatusCode: 403}))
	assert.Equal(t, "Invalid data: must not be empty", UserFriendlyMessage(&ValidationError{Reason: "must not be empty"}))
}
