package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	errors "github.com/Proton-105/skyexchange-bot/internal/errors"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/state"
	"github.com/Proton-105/skyexchange-bot/pkg/logger"
)

// UserSource resolves the API profile of a Telegram user.
type UserSource interface {
	GetUserByTelegram(ctx context.Context, telegramID int64) (*api.User, error)
}

// BanChecker reports users whose updates are ignored entirely.
type BanChecker interface {
	IsBanned(ctx context.Context, telegramID int64) (bool, error)
}

// failure drops whatever wizard was running and answers with message, the user message
// picked by the error handler.
func failure(c telebot.Context, comp *composer.Composer, fsm state.StateMachine, log *slog.Logger, message string) {
	lang := ""
	if u := handlers.UserFrom(c); u != nil {
		lang = u.Lang
	}
	ctx := handlers.Context(c)
	if fsm != nil {
		if err := fsm.ClearState(ctx, handlers.SenderID(c)); err != nil {
			log.Warn("failed to reset state after error", slog.Any("error", err))
		}
	}
	if comp == nil {
		return
	}
	r := comp.For(lang).Failure(message)
	if err := c.Send(r.Text, &telebot.SendOptions{ParseMode: telebot.ModeHTML, ReplyMarkup: r.Markup}); err != nil {
		log.Error("failed to notify user about error", slog.Any("error", err))
	}
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, comp *composer.Composer, fsm state.StateMachine) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r),
						slog.String("route", handlers.RouteName(c)),
						slog.String("stack", string(debug.Stack())))

					message := errors.MsgSomeError
					if errHandler != nil {
						message, _ = errHandler.Handle(handlers.Context(c), errors.NewInternalError(fmt.Errorf("panic recovered: %v", r)))
					}
					failure(c, comp, fsm, log, message)
					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *errors.Handler, comp *composer.Composer, fsm state.StateMachine, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			message := errors.MsgSomeError
			if errHandler != nil {
				message, _ = errHandler.Handle(handlers.Context(c), err)
			}
			failure(c, comp, fsm, log, message)
			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			ctx := handlers.Context(c)
			attrs := []any{
				slog.Int64("user_id", handlers.SenderID(c)),
				slog.String("route", handlers.RouteName(c)),
				slog.String("state", string(handlers.StateFrom(c).Current())),
			}
			if id := logger.CorrelationIDFromContext(ctx); id != "" {
				attrs = append(attrs, slog.String("correlation_id", id))
			}

			log.Debug("handling update", attrs...)
			err := next(c)
			attrs = append(attrs, slog.Duration("duration", time.Since(start)))
			if err != nil {
				log.Warn("update failed", append(attrs, slog.Any("error", err))...)
				return err
			}
			log.Info("handled update", attrs...)
			return nil
		}
	}
}

// ResolveUserMiddleware loads the sender's profile. Unknown senders are sent to start unless
// the route is public; users banned on the exchange side get a notice instead.
func ResolveUserMiddleware(users UserSource, start flows.Handler, comp *composer.Composer, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			route := handlers.RouteFrom(c)
			if route == nil {
				return nil
			}
			ctx := handlers.Context(c)

			u, err := users.GetUserByTelegram(ctx, handlers.SenderID(c))
			switch {
			case err == nil:
			case route.Public:
				u = nil
			case api.IsStatus(err, http.StatusNotFound):
				log.Info("unregistered user, redirecting to start", slog.Int64("user_id", handlers.SenderID(c)))
				handlers.SetRoute(c, &handlers.Route{Name: "start", Handler: start, Public: true, Refreshes: true})
				return next(c)
			default:
				return fmt.Errorf("resolve user: %w", err)
			}

			if u != nil && u.IsBaned {
				if c.Callback() != nil {
					_ = c.Respond()
				}
				r := comp.For(u.Lang).YouAreBanned()
				return c.Send(r.Text, &telebot.SendOptions{ParseMode: telebot.ModeHTML, ReplyMarkup: r.Markup})
			}

			handlers.SetUser(c, u)
			return next(c)
		}
	}
}

// CheckBanMiddleware drops every update of users banned from the bot.
func CheckBanMiddleware(bans BanChecker, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			banned, err := bans.IsBanned(handlers.Context(c), handlers.SenderID(c))
			if err != nil {
				log.Warn("ban lookup failed", slog.Any("error", err))
			}
			if banned {
				if c.Callback() != nil {
					return c.Respond()
				}
				return nil
			}
			return next(c)
		}
	}
}
