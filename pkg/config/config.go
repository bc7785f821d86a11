// Package config provides configuration loading and validation utilities.
package config

import (
	"time"

	"github.com/Proton-105/skyexchange-bot/pkg/redis"
)

// Config holds runtime configuration for the exchange bot.
type Config struct {
	AppEnv   string `mapstructure:"app_env"`
	Symbol   string `mapstructure:"symbol" validate:"required,oneof=btc eth usdt"`
	CoinName string `mapstructure:"coin_name"`
	TestMode bool   `mapstructure:"test"`

	Bot       BotConfig       `mapstructure:"bot"`
	API       APIConfig       `mapstructure:"api"`
	Redis     redis.Config    `mapstructure:"redis"`
	Chats     ChatsConfig     `mapstructure:"chats"`
	State     StateConfig     `mapstructure:"state"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Guard     GuardConfig     `mapstructure:"guard"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LoggerConfig    `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Server    ServerConfig    `mapstructure:"server"`
	Links     LinksConfig     `mapstructure:"links"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

// BotConfig configures the Telegram side.
type BotConfig struct {
	Token string `mapstructure:"token" validate:"required"`

	// ControllerToken is the bot that posts into control chats. Empty means reuse Token.
	ControllerToken string        `mapstructure:"controller_token"`
	Mode            string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout         time.Duration `mapstructure:"timeout"`
	WebhookListen   string        `mapstructure:"webhook_listen"`
	WebhookURL      string        `mapstructure:"webhook_url"`
}

// APIConfig points at the exchange REST service.
type APIConfig struct {
	Host    string        `mapstructure:"host" validate:"required,url"`
	Key     string        `mapstructure:"key" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatsConfig lists service chats and admin accounts.
type ChatsConfig struct {
	Control     int64   `mapstructure:"control"`
	DealControl int64   `mapstructure:"deal_control"`
	Messages    int64   `mapstructure:"messages"`
	Profits     int64   `mapstructure:"profits"`
	Earnings    int64   `mapstructure:"earnings"`
	Admins      []int64 `mapstructure:"admins"`
	// Support accounts may run merchant lookups and control reports.
	Support []int64 `mapstructure:"support"`
}

// IsAdmin reports whether tgID is listed in Admins.
func (c ChatsConfig) IsAdmin(tgID int64) bool {
	for _, id := range c.Admins {
		if id == tgID {
			return true
		}
	}
	return false
}

// StateConfig bounds how long wizard sessions live.
type StateConfig struct {
	// TTL is the Redis expiry of a session key.
	TTL time.Duration `mapstructure:"ttl"`
	// WizardTimeout drops an unanswered wizard and tells the user; it must be below TTL.
	WizardTimeout time.Duration `mapstructure:"wizard_timeout" validate:"ltfield=TTL"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// SchedulerConfig drives the poll and sweep jobs.
type SchedulerConfig struct {
	IgnoreTasks          bool          `mapstructure:"ignore_tasks"`
	UpdatesInterval      time.Duration `mapstructure:"updates_interval"`
	ControlInterval      time.Duration `mapstructure:"control_interval"`
	ProfitInterval       time.Duration `mapstructure:"profit_interval"`
	RetryInterval        time.Duration `mapstructure:"retry_interval"`
	ControlRetryInterval time.Duration `mapstructure:"control_retry_interval"`
	DisputeReminderDelay time.Duration `mapstructure:"dispute_reminder_delay"`
	Concurrency          int           `mapstructure:"concurrency"`
}

// NotifyConfig tunes outbound delivery.
type NotifyConfig struct {
	MaxTries          int           `mapstructure:"max_tries" validate:"gte=1"`
	SendDelay         time.Duration `mapstructure:"send_delay"`
	ControlRetryDelay time.Duration `mapstructure:"control_retry_delay"`
}

// GuardConfig tunes withdrawal cooldown and spam detection.
type GuardConfig struct {
	WithdrawCooldown time.Duration `mapstructure:"withdraw_cooldown"`
	SpamThreshold    int           `mapstructure:"spam_threshold"`
}

// RateLimitConfig holds per-user and per-command throttling rules.
type RateLimitConfig struct {
	Enabled   bool                     `mapstructure:"enabled"`
	Whitelist []int64                  `mapstructure:"whitelist"`
	PerUser   RateLimitRule            `mapstructure:"per_user"`
	Global    RateLimitRule            `mapstructure:"global"`
	Commands  map[string]RateLimitRule `mapstructure:"commands"`
}

// RateLimitRule is a limit within a window such as "1s" or "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// LoggerConfig configures slog output and file rotation.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig enables error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// ServerConfig configures the probe and metrics listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LinksConfig holds user-facing links and handles.
type LinksConfig struct {
	AgreementURL string `mapstructure:"agreement_url"`
	Support      string `mapstructure:"support"`
	ChannelLink  string `mapstructure:"channel_link"`
	ChatLink     string `mapstructure:"chat_link"`
	WorldChat    string `mapstructure:"world_chat"`
	TermsURL     string `mapstructure:"terms_url"`
	Site         string `mapstructure:"site"`
}

// I18nConfig points at locale files.
type I18nConfig struct {
	Dir         string `mapstructure:"dir"`
	DefaultLang string `mapstructure:"default_lang"`
}

// Decimals returns on-chain precision for the configured symbol.
func (c Config) Decimals() int32 {
	switch c.Symbol {
	case "eth":
		return 18
	case "usdt":
		return 6
	default:
		return 8
	}
}
