package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

type Record struct {
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// RedisStore keeps records as JSON strings under "<namespace>:idempotency:<key>".
type RedisStore struct {
	client redis.Cmdable
	prefix string
	log    *slog.Logger
}

func NewRedisStore(client redis.Cmdable, namespace string, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	prefix := "idempotency:"
	if namespace != "" {
		prefix = namespace + ":" + prefix
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, s.lockKey(key), StatusProcessing, lockTTL).Result()
	if err != nil {
		s.log.Error("failed to acquire idempotency lock", slog.String("key", key), slog.Any("error", err))
		return false, err
	}
	return acquired, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to fetch idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		s.log.Error("failed to decode idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}
	return &record, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.recordKey(key), raw, ttl).Err(); err != nil {
		s.log.Error("failed to store idempotency record", slog.String("key", key), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.lockKey(key)).Err()
}

func (s *RedisStore) recordKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) lockKey(key string) string {
	return s.prefix + key + ":lock"
}
