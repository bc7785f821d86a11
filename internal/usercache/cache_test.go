package usercache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
)

type fakeSource struct {
	users map[int64]api.User
	calls int
}

func (f *fakeSource) GetUser(_ context.Context, id int64) (*api.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &u, nil
}

func (f *fakeSource) GetUserByTelegram(_ context.Context, tg int64) (*api.User, error) {
	f.calls++
	for _, u := range f.users {
		if u.TelegramID == tg {
			u := u
			return &u, nil
		}
	}
	return nil, errors.New("not found")
}

func newUsers(t *testing.T) (*Users, *fakeSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := &fakeSource{users: map[int64]api.User{
		1: {ID: 1, TelegramID: 1001, Nickname: "alice", Lang: "en", Rating: decimal.RequireFromString("4.5")},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUsers(src, NewCache(client, "btc"), time.Minute, log), src, mr
}

func TestUsersReadThrough(t *testing.T) {
	users, src, mr := newUsers(t)
	ctx := context.Background()

	u, err := users.GetUserByTelegram(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Nickname)
	assert.True(t, mr.Exists("btc:usercache:tg:1001"))
	assert.True(t, mr.Exists("btc:usercache:id:1"))

	u, err = users.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.Rating.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 1, src.calls)
}

func TestUsersForget(t *testing.T) {
	users, src, mr := newUsers(t)
	ctx := context.Background()

	u, err := users.GetUser(ctx, 1)
	require.NoError(t, err)
	users.Forget(ctx, u)
	assert.False(t, mr.Exists("btc:usercache:id:1"))
	assert.False(t, mr.Exists("btc:usercache:tg:1001"))

	_, err = users.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestUsersErrorsAreNotCached(t *testing.T) {
	users, src, _ := newUsers(t)
	ctx := context.Background()

	_, err := users.GetUser(ctx, 9)
	require.Error(t, err)
	_, err = users.GetUser(ctx, 9)
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestUsersSurviveRedisOutage(t *testing.T) {
	users, src, mr := newUsers(t)
	mr.Close()

	u, err := users.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Nickname)
	assert.Equal(t, 1, src.calls)
}
