package middleware

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/idempotency"
)

// Idempotency drops Telegram updates that were already handled.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			key := UpdateKey(c)
			if key == "" {
				return next(c)
			}

			ctx := handlers.Context(c)
			res, err := manager.Execute(ctx, key, idempotency.DefaultTTL, func(_ context.Context) error {
				return next(c)
			})
			switch {
			case errors.Is(err, idempotency.ErrRequestInProgress):
				log.Debug("update already in progress", slog.String("key", key))
				return nil
			case err != nil:
				return err
			case res.Duplicate:
				log.Info("duplicate update dropped", slog.String("key", key))
			}
			return nil
		}
	}
}

// UpdateKey identifies the update behind c.
func UpdateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}
	var (
		callbackID string
		chatID     int64
		messageID  int
	)
	if cb := c.Callback(); cb != nil {
		callbackID = cb.ID
	}
	if msg := c.Message(); msg != nil {
		messageID = msg.ID
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
	}
	return idempotency.UpdateKey(c.Update().ID, callbackID, chatID, messageID)
}
