package middleware

import (
	"context"
	"errors"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/ratelimit"
)

// SpamGuard counts throttled updates per user.
type SpamGuard interface {
	Throttled(telegramID int64) bool
	Passed(telegramID int64)
	Threshold() int
}

// Alerter posts service text to a chat.
type Alerter interface {
	Text(ctx context.Context, chatID int64, text string) error
}

// RateLimitMiddleware throttles each user per route. Throttled updates are dropped
// without an answer; a user who keeps going past the spam threshold is reported to the
// admins.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	guard   SpamGuard
	alerter Alerter
	admins  []int64
	alert   func(telegramID int64, threshold int) string
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(
	limiter ratelimit.Limiter,
	rules *ratelimit.Rules,
	guard SpamGuard,
	alerter Alerter,
	admins []int64,
	alert func(telegramID int64, threshold int) string,
	log *slog.Logger,
) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		guard:   guard,
		alerter: alerter,
		admins:  admins,
		alert:   alert,
		log:     log,
	}
}

// Handle is the handlers.Middleware form.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		userID := handlers.SenderID(c)
		if userID == 0 || m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		ctx := handlers.Context(c)
		route := handlers.RouteName(c)
		limit, window := m.rules.ForRoute(route)

		result, err := m.limiter.Check(ctx, ratelimit.UserKey(userID, route), limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded), err == nil && !result.Allowed:
			m.throttled(ctx, c, userID, route)
			return nil
		case err != nil:
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		if m.guard != nil {
			m.guard.Passed(userID)
		}
		return next(c)
	}
}

func (m *RateLimitMiddleware) throttled(ctx context.Context, c telebot.Context, userID int64, route string) {
	m.log.Debug("update throttled", slog.Int64("user_id", userID), slog.String("route", route))
	if c.Callback() != nil {
		_ = c.Respond()
	}
	if m.guard == nil || !m.guard.Throttled(userID) {
		return
	}

	m.log.Warn("spam attack suspected", slog.Int64("user_id", userID))
	if m.alerter == nil || m.alert == nil {
		return
	}
	text := m.alert(userID, m.guard.Threshold())
	for _, admin := range m.admins {
		if err := m.alerter.Text(ctx, admin, text); err != nil {
			m.log.Error("spam alert failed", slog.Int64("admin", admin), slog.Any("error", err))
		}
	}
}
