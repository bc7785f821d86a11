package errors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "success first try", errs: []error{nil}, wantCalls: 1},
		{name: "retryable then success", errs: []error{NewExternalAPIError("api", nil), nil}, wantCalls: 2},
		{name: "non retryable stops", errs: []error{NewValidationError("bad")}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				e := tt.errs[calls]
				calls++
				return e
			})
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreakerOpensOnFailures(t *testing.T) {
	cb := NewCircuitBreaker()
	boom := errors.New("boom")

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(func() error { return boom })
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreakerIgnoresFilteredErrors(t *testing.T) {
	rejected := errors.New("rejected")
	cb := NewCircuitBreaker()
	cb.IsFailure = func(err error) bool { return !errors.Is(err, rejected) }

	for i := 0; i < MinRequests*2; i++ {
		err := cb.Call(func() error { return rejected })
		require.ErrorIs(t, err, rejected)
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestHandlerReturnsUserMessage(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	msg, retry := h.Handle(context.Background(), NewRejectionError("not enough funds", nil))
	assert.Equal(t, "not enough funds", msg)
	assert.False(t, retry)

	msg, retry = h.Handle(context.Background(), errors.New("unexpected"))
	assert.Equal(t, MsgSomeError, msg)
	assert.False(t, retry)
}
