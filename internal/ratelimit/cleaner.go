package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner periodically drops rate-limit keys left without a TTL, which happens when a
// pipeline fails between ZADD and EXPIRE.
type Cleaner struct {
	client   redis.Cmdable
	pattern  string
	log      *slog.Logger
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(client redis.Cmdable, namespace string, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		pattern:  keyPrefix(namespace) + "*",
		log:      log,
		interval: interval,
	}
}

// Run starts the cleaner loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one scan and returns how many keys were removed.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	const scanCount = 100

	var cursor uint64
	cleaned := 0

	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.pattern, scanCount).Result()
		if err != nil {
			c.log.Error("rate limit scan failed", slog.Any("error", err))
			return cleaned
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("rate limit ttl failed", slog.String("key", key), slog.Any("error", err))
				continue
			}
			// -1 means the key exists without an expiry.
			if ttl != -1 {
				continue
			}
			if err := c.client.Del(ctx, key).Err(); err != nil {
				c.log.Warn("failed to delete stale rate limit key", slog.String("key", key), slog.Any("error", err))
				continue
			}
			cleaned++
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	if cleaned > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", cleaned))
	}
	return cleaned
}
