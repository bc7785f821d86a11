package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// env files are optional
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Symbol = strings.ToLower(cfg.Symbol)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and passes the new log level to onLevel.
func Watch(v *viper.Viper, log *slog.Logger, onLevel func(string)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}
		log.Info("config reloaded", "file", e.Name, "log_level", cfg.Log.Level)
		onLevel(cfg.Log.Level)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "btc")
	v.SetDefault("coin_name", "SKY BTC")

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.webhook_listen", ":8443")

	v.SetDefault("api.host", "http://api:5555")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 5)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("state.ttl", 24*time.Hour)
	v.SetDefault("state.wizard_timeout", 30*time.Minute)
	v.SetDefault("state.sweep_interval", 5*time.Minute)

	v.SetDefault("scheduler.updates_interval", 4*time.Second)
	v.SetDefault("scheduler.control_interval", 10*time.Second)
	v.SetDefault("scheduler.profit_interval", 15*time.Minute)
	v.SetDefault("scheduler.retry_interval", 10*time.Second)
	v.SetDefault("scheduler.control_retry_interval", 60*time.Second)
	v.SetDefault("scheduler.dispute_reminder_delay", 5*time.Minute)
	v.SetDefault("scheduler.concurrency", 5)

	v.SetDefault("notify.max_tries", 10)
	v.SetDefault("notify.send_delay", 100*time.Millisecond)
	v.SetDefault("notify.control_retry_delay", 5*time.Second)

	v.SetDefault("guard.withdraw_cooldown", 10*time.Minute)
	v.SetDefault("guard.spam_threshold", 50)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_user.limit", 1)
	v.SetDefault("rate_limit.per_user.window", "1s")
	v.SetDefault("rate_limit.global.limit", 30)
	v.SetDefault("rate_limit.global.window", "1s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("links.agreement_url", "https://sky-site.s3.eu-west-2.amazonaws.com/agreement.pdf")
	v.SetDefault("links.support", "@SKY_CRYPTO_SUPPORT")
	v.SetDefault("links.channel_link", "t.me/sky_banker")
	v.SetDefault("links.chat_link", "t.me/skychatru")
	v.SetDefault("links.world_chat", "https://t.me/SKYchatEN")
	v.SetDefault("links.terms_url", "https://skycrypto.me/doc/term-of-use-ru.pdf")
	v.SetDefault("links.site", "www.skycrypto.me")

	v.SetDefault("i18n.dir", "internal/i18n/locales")
	v.SetDefault("i18n.default_lang", "ru")
}

// bindLegacyEnv keeps the flat variable names used by existing deployments.
func bindLegacyEnv(v *viper.Viper) {
	pairs := map[string]string{
		"bot.token":              "BOT_TOKEN",
		"bot.controller_token":   "CONTROLLER_TOKEN",
		"api.key":                "API_KEY",
		"api.host":               "API_HOST",
		"redis.addr":             "REDIS_HOST",
		"test":                   "TEST",
		"scheduler.ignore_tasks": "IGNORE_TASKS",
	}
	for key, env := range pairs {
		_ = v.BindEnv(key, env)
	}
}
