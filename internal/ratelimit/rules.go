package ratelimit

import (
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

// DefaultWindow is the per-handler throttle: one update per second.
const DefaultWindow = time.Second

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether throttling is switched on.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if the Telegram user bypasses rate limits.
func (r *Rules) IsWhitelisted(telegramID int64) bool {
	return lo.Contains(r.config.Whitelist, telegramID)
}

// ForRoute returns the rule of a route, falling back to the per-user rule and then to
// one update per second.
func (r *Rules) ForRoute(route string) (int, time.Duration) {
	if rule, ok := r.config.Commands[route]; ok {
		if limit, window, err := parseRule(rule); err == nil {
			return limit, window
		}
	}
	if limit, window, err := parseRule(r.config.PerUser); err == nil {
		return limit, window
	}
	return 1, DefaultWindow
}

// GetGlobalLimit returns the global rate limiting rule.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	if rule.Limit <= 0 {
		return 0, 0, errors.New("limit must be positive")
	}
	return rule.Limit, window, nil
}
