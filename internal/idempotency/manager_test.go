package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewRedisStore(client, "btc", log), log), mr
}

func TestExecuteRunsOnce(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	calls := 0
	op := func(context.Context) error { calls++; return nil }

	res, err := m.Execute(ctx, "upd:1", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	res, err = m.Execute(ctx, "upd:1", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, calls)

	assert.True(t, mr.Exists("btc:idempotency:upd:1"))
	assert.False(t, mr.Exists("btc:idempotency:upd:1:lock"))
	assert.Equal(t, time.Hour, mr.TTL("btc:idempotency:upd:1"))
}

func TestExecuteFailureAllowsRetry(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := m.Execute(ctx, "upd:2", time.Hour, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	calls := 0
	res, err := m.Execute(ctx, "upd:2", time.Hour, func(context.Context) error { calls++; return nil })
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, calls)
}

func TestExecuteInProgress(t *testing.T) {
	m, mr := newTestManager(t)
	require.NoError(t, mr.Set("btc:idempotency:upd:3:lock", StatusProcessing))

	_, err := m.Execute(context.Background(), "upd:3", time.Hour, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestUpdateKey(t *testing.T) {
	assert.Equal(t, "upd:10", UpdateKey(10, "cb", 1, 2))
	assert.Equal(t, "cb:abc", UpdateKey(0, "abc", 1, 2))
	assert.Equal(t, "msg:"+GenerateKey(int64(1), 2), UpdateKey(0, "", 1, 2))
	assert.Empty(t, UpdateKey(0, "", 1, 0))
}
