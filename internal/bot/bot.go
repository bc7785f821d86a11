package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	errors "github.com/Proton-105/skyexchange-bot/internal/errors"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/idempotency"
	"github.com/Proton-105/skyexchange-bot/internal/middleware"
	"github.com/Proton-105/skyexchange-bot/internal/state"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
	"github.com/Proton-105/skyexchange-bot/pkg/logger"
)

// Users resolves profiles and forgets them once they change.
type Users interface {
	UserSource
	ProfileCache
}

// Deps are the collaborators of the update pipeline.
type Deps struct {
	FSM         state.StateMachine
	Flows       *flows.Flows
	Users       Users
	Bans        BanChecker
	RateLimit   *middleware.RateLimitMiddleware
	Idempotency idempotency.Manager
	Errors      *errors.Handler
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot *telebot.Bot
	log     *slog.Logger
	router  *Router
	base    context.Context
}

// NewTelebot builds the telebot client from the bot settings. Polling is the default,
// webhook mode listens on WebhookListen and registers WebhookURL.
func NewTelebot(cfg config.BotConfig) (*telebot.Bot, error) {
	settings := telebot.Settings{Token: cfg.Token}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{Timeout: cfg.Timeout}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}
	return tb, nil
}

// New wires the router, the middleware chain and the telebot handlers.
func New(tb *telebot.Bot, deps Deps, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}

	dispatcher := NewDispatcher(deps.FSM, tb, deps.Users, log)
	router := NewRouter(deps.FSM, deps.Flows, dispatcher, log)
	comp := deps.Flows.Composer()

	router.Use(RecoveryMiddleware(log, deps.Errors, comp, deps.FSM))
	if deps.Idempotency != nil {
		router.Use(middleware.Idempotency(deps.Idempotency, log))
	}
	router.Use(ErrorHandlingMiddleware(deps.Errors, comp, deps.FSM, log))
	router.Use(LoggingMiddleware(log))
	router.Use(middleware.Metrics)
	for _, mw := range userChain(deps.Users, deps.Flows.Start, deps.Bans, deps.RateLimit, comp, log) {
		router.Use(mw)
	}
	registerRoutes(router, deps.Flows)

	b := &Bot{
		telebot: tb,
		log:     log,
		router:  router,
		base:    context.Background(),
	}
	for _, endpoint := range []string{telebot.OnText, telebot.OnCallback, telebot.OnPhoto, telebot.OnDocument} {
		tb.Handle(endpoint, b.handle)
	}
	return b
}

// userChain is the per-sender part of the pipeline: resolve the user, drop banned senders,
// then throttle. bans and rl may be nil.
func userChain(users UserSource, start flows.Handler, bans BanChecker, rl *middleware.RateLimitMiddleware, comp *composer.Composer, log *slog.Logger) []handlers.Middleware {
	chain := []handlers.Middleware{ResolveUserMiddleware(users, start, comp, log)}
	if bans != nil {
		chain = append(chain, CheckBanMiddleware(bans, log))
	}
	if rl != nil {
		chain = append(chain, rl.Handle)
	}
	return chain
}

func (b *Bot) handle(c telebot.Context) error {
	handlers.SetContext(c, logger.WithCorrelationID(b.base))
	return b.router.Route(c)
}

// Run receives updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.base = ctx
	go func() {
		<-ctx.Done()
		b.log.Info("stopping telegram bot...")
		b.telebot.Stop()
	}()

	b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
	return nil
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
