package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewUserError("could not save task", cause)

	assert.Equal(t, "could not save task: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "could not save task", userErr.UserMessage)

	assert.Equal(t, "just a message", NewUserError("just a message", nil).Error())
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable("list categories", nil))

	driverErr := errors.New("connection refused")
	err := Unavailable("list categories", driverErr)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, driverErr)
	assert.Contains(t, err.Error(), "list categories")

	passthrough := []error{
		fmt.Errorf("category x: %w", ErrNotFound),
		ErrProtectedRecord,
		ErrInvalidOperation,
		ErrDuplicateEntry,
		context.Canceled,
		context.DeadlineExceeded,
	}
	for _, in := range passthrough {
		out := Unavailable("op", in)
		assert.ErrorIs(t, out, in)
		assert.NotErrorIs(t, out, ErrStoreUnavailable, in.Error())
	}

	// Already wrapped errors are not wrapped twice.
	twice := Unavailable("outer", Unavailable("inner", driverErr))
	assert.ErrorIs(t, twice, ErrStoreUnavailable)
	assert.Equal(t, "outer: inner: store unavailable: connection refused", twice.Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("nope"), false},
		{"retryable", &RetryableError{Err: errors.New("busy"), Retryable: true}, true},
		{"marked not retryable", &RetryableError{Err: errors.New("bad"), Retryable: false}, false},
		{"wrapped retryable", fmt.Errorf("write: %w", &RetryableError{Err: errors.New("busy"), Retryable: true}), true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
