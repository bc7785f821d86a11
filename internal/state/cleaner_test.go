package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_DropsWizardsPastTimeout(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, "btc", 24*time.Hour, testLogger())
	ctx := context.Background()

	require.NoError(t, storage.SetState(ctx, 1, &UserState{CurrentState: StateEnterSumDeal}))
	require.NoError(t, storage.SetState(ctx, 2, &UserState{CurrentState: StateIdle}))

	var dropped []*UserState
	cleaner := NewCleaner(storage, 30*time.Minute, func(_ context.Context, st *UserState) {
		dropped = append(dropped, st)
	}, testLogger())

	cleaner.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	n, err := cleaner.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, dropped)

	_, err = storage.GetState(ctx, 1)
	assert.NoError(t, err, "fresh wizard is kept")
	_, err = storage.GetState(ctx, 2)
	assert.ErrorIs(t, err, ErrStateNotFound, "idle record is cleared without a notice")

	cleaner.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = cleaner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(1), dropped[0].UserID)
	assert.Equal(t, StateEnterSumDeal, dropped[0].CurrentState)

	_, err = storage.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestCleaner_RunsBeforeStorageExpiry(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, "btc", 24*time.Hour, testLogger())
	ctx := context.Background()
	require.NoError(t, storage.SetState(ctx, 3, &UserState{CurrentState: StateWriteMessage}))

	cleaner := NewCleaner(storage, 0, nil, testLogger())
	assert.Equal(t, DefaultWizardTimeout, cleaner.timeout)

	cleaner.now = func() time.Time { return time.Now().Add(DefaultWizardTimeout + time.Minute) }
	require.NoError(t, cleaner.Run(ctx))

	_, err := storage.GetState(ctx, 3)
	assert.ErrorIs(t, err, ErrStateNotFound)
}
