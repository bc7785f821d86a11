package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter is the in-process fallback used while Redis is unavailable. Each key
// holds the request timestamps of its window and expires with it.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	log     *slog.Logger
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an in-memory limiter implementation.
func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		buckets: cache.New(time.Minute, 5*time.Minute),
		log:     log,
	}
}

// Check enforces a sliding-window limit for the provided key.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var requests []time.Time
	if v, ok := m.buckets.Get(key); ok {
		requests = v.([]time.Time)
	}
	requests = keepRecent(requests, now.Add(-window))

	allowed := len(requests) < limit
	if allowed {
		requests = append(requests, now)
	}
	m.buckets.Set(key, requests, window)

	remaining := limit - len(requests)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}
	if !allowed {
		return result, ErrLimitExceeded
	}
	return result, nil
}

// Len reports how many keys are tracked.
func (m *MemoryLimiter) Len() int {
	return m.buckets.ItemCount()
}

func keepRecent(reqs []time.Time, windowStart time.Time) []time.Time {
	firstIdx := 0
	for firstIdx < len(reqs) && reqs[firstIdx].Before(windowStart) {
		firstIdx++
	}
	if firstIdx == 0 {
		return reqs
	}
	out := make([]time.Time, len(reqs)-firstIdx)
	copy(out, reqs[firstIdx:])
	return out
}
