package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	userStateKeyPattern  = "%s:user:state:%d"
	userStateScanPattern = "%s:user:state:*"
	defaultStateTTL      = 24 * time.Hour
)

// RedisStorage persists user FSM states in Redis under a per-deployment prefix.
type RedisStorage struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	log       *slog.Logger
}

// storedState is the wire form. The state name carries the deployment suffix.
type storedState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState string                 `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
// namespace is the deployment symbol; ttl bounds how long an abandoned wizard survives.
func NewRedisStorage(client *redis.Client, namespace string, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &RedisStorage{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		log:       log,
	}
}

// GetState returns the stored user state or ErrStateNotFound when absent.
func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}

		s.log.Error("failed to get state from redis", "user_id", userID, "error", err)
		return nil, err
	}

	st, err := s.decode(data)
	if err != nil {
		s.log.Error("failed to decode user state", "user_id", userID, "error", err)
		return nil, err
	}

	return st, nil
}

// SetState saves the provided user state with the configured TTL.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(storedState{
		UserID:       userID,
		CurrentState: state.CurrentState.Qualify(s.namespace),
		Context:      state.Context,
		UpdatedAt:    state.UpdatedAt,
	})
	if err != nil {
		s.log.Error("failed to encode user state", "user_id", userID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save state in redis", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// ClearState removes the stored state for the given user.
func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		s.log.Error("failed to clear user state", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// GetAllStates retrieves every stored user state by scanning Redis keys.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		cursor uint64
		result []*UserState
	)

	pattern := fmt.Sprintf(userStateScanPattern, s.namespace)
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan user states", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch user state", "key", key, "error", err)
				return nil, err
			}

			st, err := s.decode(data)
			if err != nil {
				s.log.Error("failed to decode user state", "key", key, "error", err)
				continue
			}
			result = append(result, st)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func (s *RedisStorage) decode(data []byte) (*UserState, error) {
	var raw storedState
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &UserState{
		UserID:       raw.UserID,
		CurrentState: Unqualify(raw.CurrentState, s.namespace),
		Context:      raw.Context,
		UpdatedAt:    raw.UpdatedAt,
	}, nil
}

func (s *RedisStorage) key(userID int64) string {
	return fmt.Sprintf(userStateKeyPattern, s.namespace, userID)
}
