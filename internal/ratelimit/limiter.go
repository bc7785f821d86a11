// Package ratelimit throttles Telegram updates per user and per route.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter describes a rate-limiting strategy interface.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// UserKey is the limiter key of one user on one route.
func UserKey(telegramID int64, route string) string {
	if route == "" {
		return fmt.Sprintf("user:%d", telegramID)
	}
	return fmt.Sprintf("user:%d:%s", telegramID, route)
}
