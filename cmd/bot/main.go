package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	errors "github.com/Proton-105/skyexchange-bot/internal/errors"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/guard"
	"github.com/Proton-105/skyexchange-bot/internal/health"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/internal/idempotency"
	"github.com/Proton-105/skyexchange-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/skyexchange-bot/internal/jobs/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/lifecycle"
	"github.com/Proton-105/skyexchange-bot/internal/middleware"
	"github.com/Proton-105/skyexchange-bot/internal/notify"
	"github.com/Proton-105/skyexchange-bot/internal/ratelimit"
	"github.com/Proton-105/skyexchange-bot/internal/relay"
	"github.com/Proton-105/skyexchange-bot/internal/state"
	"github.com/Proton-105/skyexchange-bot/internal/usercache"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
	"github.com/Proton-105/skyexchange-bot/pkg/graceful"
	"github.com/Proton-105/skyexchange-bot/pkg/logger"
	"github.com/Proton-105/skyexchange-bot/pkg/metrics"
	"github.com/Proton-105/skyexchange-bot/pkg/redis"
)

// version is set at build time.
var version = "dev"

const rateLimitSweep = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cachedRelayAPI serves relay profile lookups from the user cache.
type cachedRelayAPI struct {
	*api.Client
	users *usercache.Users
}

func (c cachedRelayAPI) GetUser(ctx context.Context, userID int64) (*api.User, error) {
	return c.users.GetUser(ctx, userID)
}

// wizardTimeoutNotice returns the user to the main menu after the state cleaner dropped
// their wizard. An unconfirmed policy is dropped silently.
func wizardTimeoutNotice(users *usercache.Users, comp *composer.Composer, n *notify.Notifier, log *slog.Logger) state.AbandonFunc {
	return func(ctx context.Context, st *state.UserState) {
		if st.Current() == state.StateConfirmPolicy {
			return
		}
		lang := ""
		if u, err := users.GetUserByTelegram(ctx, st.UserID); err == nil {
			lang = u.Lang
		}
		if err := n.Notify(ctx, st.UserID, comp.For(lang).WizardTimeout()); err != nil {
			log.Warn("wizard timeout notice failed", slog.Int64("user_id", st.UserID), slog.Any("error", err))
		}
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitSentry(cfg.Sentry, version); err != nil {
		return err
	}
	defer logger.FlushSentry(2 * time.Second)

	log := logger.New(cfg.Log, cfg.Sentry).With(slog.String("symbol", cfg.Symbol))
	log.Info("starting exchange bot",
		slog.String("env", cfg.AppEnv),
		slog.String("version", version),
		slog.Bool("test_mode", cfg.TestMode))
	config.Watch(v, log, logger.SetLevel)

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	storage := state.NewRedisStorage(rdb.Client, cfg.Symbol, cfg.State.TTL, log)
	fsm := state.NewStateMachine(storage, log, rdb.Client, cfg.Symbol)

	client := api.New(cfg.API, log)
	users := usercache.NewUsers(client, usercache.NewCache(rdb.Client, cfg.Symbol), usercache.DefaultTTL, log)

	locales, err := loadLocales(cfg.I18n)
	if err != nil {
		return err
	}
	comp := composer.New(locales, keyboard.NewBuilder(log, cfg.Symbol, cfg.Links), cfg.Symbol, cfg.CoinName, cfg.Links)
	grd := guard.New(rdb.Client, cfg.Guard, log)

	tb, err := bot.NewTelebot(cfg.Bot)
	if err != nil {
		return err
	}
	controller := tb
	if cfg.Bot.ControllerToken != "" {
		controller, err = telebot.NewBot(telebot.Settings{Token: cfg.Bot.ControllerToken, Offline: true})
		if err != nil {
			return fmt.Errorf("initialize controller bot: %w", err)
		}
	}

	userSender := notify.NewTelebotSender(tb)
	queue := notify.NewQueue(userSender, cfg.Notify.MaxTries, cfg.Notify.SendDelay, log)
	controlQueue := notify.NewControlQueue(notify.NewTelebotSender(controller), cfg.Notify.SendDelay, cfg.Notify.ControlRetryDelay, log)
	notifier := notify.NewNotifier(userSender, queue, log)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	jobManager := jobs.NewManager(redisOpt, log)
	reminders := jobs.NewReminders(jobManager, cfg.Scheduler.DisputeReminderDelay, log)

	rel := relay.New(cachedRelayAPI{Client: client, users: users}, comp, notifier, controlQueue, reminders, cfg.Chats, log)

	fl := flows.New(client, comp, grd, notifier, flows.Options{
		Symbol:       cfg.Symbol,
		Decimals:     cfg.Decimals(),
		TestMode:     cfg.TestMode,
		BotUsername:  tb.Me.Username,
		AgreementURL: cfg.Links.AgreementURL,
		SupportIDs:   cfg.Chats.Support,
	}, log)

	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(rdb.Client, cfg.Symbol, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	rateLimitMw := middleware.NewRateLimitMiddleware(
		limiter,
		ratelimit.NewRules(cfg.RateLimit),
		grd,
		notifier,
		cfg.Chats.Admins,
		comp.SpamAlert,
		log,
	)

	app := bot.New(tb, bot.Deps{
		FSM:         fsm,
		Flows:       fl,
		Users:       users,
		Bans:        grd,
		RateLimit:   rateLimitMw,
		Idempotency: idempotency.NewManager(idempotency.NewRedisStore(rdb.Client, cfg.Symbol, log), log),
		Errors:      errors.NewHandler(log, cfg.Sentry.Enabled),
	}, log)

	checker := health.NewChecker(log)
	checker.AddCheck("redis", health.NewRedisChecker(rdb.Client))
	checker.AddCheck("exchange_api", health.NewAPIChecker(func(ctx context.Context) error {
		_, err := client.Settings(ctx)
		return err
	}))
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))
	probes := lifecycle.NewProbes(checker, log)
	ops := graceful.NewOpsServer(cfg.Server.Port, cfg.Server.ShutdownTimeout, log, middleware.HTTPLogging(log), probes)

	poller := jobs.NewPoller(log)
	stateCleaner := state.NewCleaner(storage, cfg.State.WizardTimeout, wizardTimeoutNotice(users, comp, notifier, log), log)
	poller.Add("state_sweep", cfg.State.SweepInterval, stateCleaner.Run)

	var worker jobs.Worker
	var scheduler jobs.Scheduler
	if !cfg.Scheduler.IgnoreTasks {
		poller.Add("updates", cfg.Scheduler.UpdatesInterval, rel.PollUpdates)
		poller.Add("control", cfg.Scheduler.ControlInterval, rel.PollControl)
		poller.Add("notify_retry", cfg.Scheduler.RetryInterval, queue.Flush)
		poller.Add("control_retry", cfg.Scheduler.ControlRetryInterval, controlQueue.Flush)

		worker = jobs.NewWorker(redisOpt, jobs.Queues, cfg.Scheduler.Concurrency, log)
		worker.RegisterHandler(jobs.TaskTypeDisputeReminder, jobhandlers.NewDisputeReminderHandler(rel, log))
		worker.RegisterHandler(jobs.TaskTypeProfitSummary, jobhandlers.NewProfitSummaryHandler(rel))

		scheduler = jobs.NewScheduler(redisOpt, cfg.Scheduler.ProfitInterval, log)
		if err := scheduler.RegisterTasks(); err != nil {
			return err
		}
	} else {
		log.Warn("background tasks are disabled")
	}

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
	shutdown.Register("jobs_client", func(context.Context) error { return jobManager.Close() })
	if scheduler != nil {
		shutdown.Register("scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ops.ListenAndServe(gctx) })
	g.Go(func() error { return app.Run(gctx) })
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error {
		ratelimit.NewCleaner(rdb.Client, cfg.Symbol, log, rateLimitSweep).Run(gctx)
		return nil
	})
	g.Go(func() error {
		metrics.NewStateCollector(fsm).Run(gctx)
		return nil
	})
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
		scheduler.Run()
	}

	<-gctx.Done()
	probes.Drain()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	err = g.Wait()
	if hookErr := shutdown.Execute(shutdownCtx); hookErr != nil {
		log.Error("shutdown hooks failed", slog.Any("error", hookErr))
	}
	if err != nil {
		return err
	}
	log.Info("exchange bot stopped")
	return nil
}

func loadLocales(cfg config.I18nConfig) (*i18n.Manager, error) {
	if cfg.Dir != "" {
		return i18n.LoadFromDir(cfg.Dir, cfg.DefaultLang)
	}
	return i18n.Load(cfg.DefaultLang)
}
