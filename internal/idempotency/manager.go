// Package idempotency makes sure a Telegram update is handled once even when the Bot API
// redelivers it, as it does after a webhook timeout.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

// DefaultTTL keeps handled update keys for a day.
const DefaultTTL = 24 * time.Hour

const lockTTL = 5 * time.Minute

type Operation func(ctx context.Context) error

type Result struct {
	// Duplicate is set when the key was already handled and fn did not run.
	Duplicate bool
	Duration  time.Duration
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Execute runs fn unless key was completed before. A failed fn releases the key so the
// next delivery may try again.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil && record.Status == StatusCompleted {
		return &Result{Duplicate: true}, nil
	}

	locked, err := m.store.Lock(ctx, key, lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestInProgress
	}
	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	start := m.now()
	if err := fn(ctx); err != nil {
		return nil, err
	}

	done := &Record{Status: StatusCompleted, CompletedAt: m.now()}
	if err := m.store.Set(ctx, key, done, ttl); err != nil {
		// The update was handled; a missing record only weakens redelivery protection.
		m.log.Error("store idempotency record", slog.String("key", key), slog.Any("error", err))
	}

	return &Result{Duration: m.now().Sub(start)}, nil
}
