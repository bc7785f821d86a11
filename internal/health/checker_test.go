package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestCheckerAggregates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewChecker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.AddCheck("redis", NewRedisChecker(client))
	c.AddCheck("api", NewAPIChecker(func(context.Context) error { return nil }))
	c.AddCheck("", NewAPIChecker(nil))

	results := c.Check(context.Background())
	assert.Equal(t, map[string]string{"redis": "OK", "api": "OK"}, results)
	assert.True(t, Healthy(results))
	assert.Equal(t, []string{"api", "redis"}, c.Names())

	c.AddCheck("api", CheckFunc(func(context.Context) error { return errors.New("api down") }))
	results = c.Check(context.Background())
	assert.Equal(t, "api down", results["api"])
	assert.False(t, Healthy(results))
}

func TestTelegramCheckerWithoutBot(t *testing.T) {
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(context.Background()))
	assert.Error(t, NewAPIChecker(nil).HealthCheck(context.Background()))
}
