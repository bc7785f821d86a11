// Package guard keeps the short-lived anti-abuse bookkeeping of the bot: withdrawal
// cooldowns per destination address, the per-user throttle counter and the global
// message ban flag.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

const (
	DefaultCooldown      = 10 * time.Minute
	DefaultSpamThreshold = 50

	// banKeyPattern is shared by every deployment, so it carries no symbol prefix.
	banKeyPattern = "is_baned_%d"
	spamTTL       = time.Hour
)

// Guard is safe for concurrent use.
type Guard struct {
	withdrawals *cache.Cache
	throttled   *cache.Cache
	rdb         redis.Cmdable
	threshold   int
	log         *slog.Logger
}

func New(rdb redis.Cmdable, cfg config.GuardConfig, log *slog.Logger) *Guard {
	cooldown := cfg.WithdrawCooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	threshold := cfg.SpamThreshold
	if threshold <= 0 {
		threshold = DefaultSpamThreshold
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		withdrawals: cache.New(cooldown, cooldown),
		throttled:   cache.New(spamTTL, spamTTL),
		rdb:         rdb,
		threshold:   threshold,
		log:         log.With(slog.String("component", "guard")),
	}
}

// WithdrawalAllowed reports whether address is out of its cooldown.
func (g *Guard) WithdrawalAllowed(address string) bool {
	_, found := g.withdrawals.Get(address)
	return !found
}

// RecordWithdrawal starts the cooldown for address.
func (g *Guard) RecordWithdrawal(address string) {
	g.withdrawals.SetDefault(address, time.Now())
}

// Throttled counts a throttled update from telegramID. It returns true once the count
// exceeds the spam threshold, and then starts counting again.
func (g *Guard) Throttled(telegramID int64) bool {
	key := spamKey(telegramID)
	_ = g.throttled.Add(key, 0, cache.DefaultExpiration)
	n, err := g.throttled.IncrementInt(key, 1)
	if err != nil {
		g.throttled.SetDefault(key, 1)
		return false
	}
	if n > g.threshold {
		g.throttled.Delete(key)
		g.log.Warn("spam threshold exceeded", slog.Int64("telegram_id", telegramID), slog.Int("count", n))
		return true
	}
	return false
}

// Threshold is the number of throttled updates that triggers an alert.
func (g *Guard) Threshold() int {
	return g.threshold
}

// Passed resets the throttle counter after an update got through.
func (g *Guard) Passed(telegramID int64) {
	g.throttled.Delete(spamKey(telegramID))
}

// IsBanned reports whether every update from telegramID must be dropped.
func (g *Guard) IsBanned(ctx context.Context, telegramID int64) (bool, error) {
	if g.rdb == nil {
		return false, nil
	}
	n, err := g.rdb.Exists(ctx, banKey(telegramID)).Result()
	if err != nil {
		return false, fmt.Errorf("guard: ban flag: %w", err)
	}
	return n > 0, nil
}

// SetMessagesBan sets or lifts the global ban flag.
func (g *Guard) SetMessagesBan(ctx context.Context, telegramID int64, banned bool) error {
	if g.rdb == nil {
		return nil
	}
	key := banKey(telegramID)
	var err error
	if banned {
		err = g.rdb.Set(ctx, key, "1", 0).Err()
	} else {
		err = g.rdb.Del(ctx, key).Err()
	}
	if err != nil {
		return fmt.Errorf("guard: ban flag: %w", err)
	}
	g.log.Info("messages ban changed", slog.Int64("telegram_id", telegramID), slog.Bool("banned", banned))
	return nil
}

func banKey(telegramID int64) string {
	return fmt.Sprintf(banKeyPattern, telegramID)
}

func spamKey(telegramID int64) string {
	return fmt.Sprintf("%d", telegramID)
}
