// Package usercache keeps API user profiles in Redis for a short time so that bursts of
// updates and relay polls do not refetch the same user.
package usercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/skyexchange-bot/internal/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTTL bounds how stale a cached profile may get.
const DefaultTTL = 30 * time.Second

// Cache provides Redis-backed caching for user profiles.
type Cache struct {
	client redis.Cmdable
	prefix string
}

// NewCache constructs a user cache under "<namespace>:usercache:".
func NewCache(client redis.Cmdable, namespace string) *Cache {
	prefix := "usercache:"
	if namespace != "" {
		prefix = namespace + ":" + prefix
	}
	return &Cache{client: client, prefix: prefix}
}

// Get fetches a cached user profile if it exists.
func (c *Cache) Get(ctx context.Context, key string) (*api.User, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached user: %w", err)
	}

	var user api.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}

	return &user, nil
}

// Set stores the user profile under both its API id and Telegram id.
func (c *Cache) Set(ctx context.Context, user *api.User, ttl time.Duration) error {
	if c == nil || c.client == nil || user == nil {
		return nil
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user for cache: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.prefix+IDKey(user.ID), payload, ttl)
	if user.TelegramID != 0 {
		pipe.Set(ctx, c.prefix+TelegramKey(user.TelegramID), payload, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set cached user: %w", err)
	}

	return nil
}

// Invalidate removes the cached entries of a user.
func (c *Cache) Invalidate(ctx context.Context, userID, telegramID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	keys := []string{c.prefix + IDKey(userID)}
	if telegramID != 0 {
		keys = append(keys, c.prefix+TelegramKey(telegramID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cached user: %w", err)
	}

	return nil
}

func IDKey(userID int64) string {
	return fmt.Sprintf("id:%d", userID)
}

func TelegramKey(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}

// Source is the API side of the cache.
type Source interface {
	GetUser(ctx context.Context, userID int64) (*api.User, error)
	GetUserByTelegram(ctx context.Context, telegramID int64) (*api.User, error)
}

// Users reads through the cache. Cache failures only cost an extra API call.
type Users struct {
	src   Source
	cache *Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewUsers(src Source, cache *Cache, ttl time.Duration, log *slog.Logger) *Users {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Users{src: src, cache: cache, ttl: ttl, log: log}
}

// GetUser returns the profile by API id.
func (u *Users) GetUser(ctx context.Context, userID int64) (*api.User, error) {
	return u.load(ctx, IDKey(userID), func() (*api.User, error) { return u.src.GetUser(ctx, userID) })
}

// GetUserByTelegram returns the profile by Telegram id.
func (u *Users) GetUserByTelegram(ctx context.Context, telegramID int64) (*api.User, error) {
	return u.load(ctx, TelegramKey(telegramID), func() (*api.User, error) { return u.src.GetUserByTelegram(ctx, telegramID) })
}

// Forget drops a profile that a handler may have changed.
func (u *Users) Forget(ctx context.Context, user *api.User) {
	if user == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, user.ID, user.TelegramID); err != nil {
		u.log.Warn("user cache invalidate", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
}

func (u *Users) load(ctx context.Context, key string, fetch func() (*api.User, error)) (*api.User, error) {
	cached, err := u.cache.Get(ctx, key)
	if err != nil {
		u.log.Warn("user cache read", slog.String("key", key), slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	user, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := u.cache.Set(ctx, user, u.ttl); err != nil {
		u.log.Warn("user cache write", slog.String("key", key), slog.Any("error", err))
	}
	return user, nil
}
