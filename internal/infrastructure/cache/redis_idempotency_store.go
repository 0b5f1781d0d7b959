package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmadist/backend/internal/domain/shared"
	"github.com/pharmadist/backend/internal/infrastructure/config"
)

const defaultKeyPrefix = "idempotency:"

// RedisIdempotencyStore implements IdempotencyStore using Redis, for
// deployments where multiple instances share idempotency state
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore connects to Redis and verifies the
// connection before returning the store
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store around an
// existing client. Useful for tests and for sharing a client.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Remember stores value under key if the key is unseen and returns
// (value, true). If the key was already recorded it returns the
// previously stored value and false. SETNX makes the first write
// atomic across instances.
func (s *RedisIdempotencyStore) Remember(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	redisKey := s.keyPrefix + key

	set, err := s.client.SetNX(ctx, redisKey, value, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to record idempotency key: %w", err)
	}
	if set {
		return value, true, nil
	}

	stored, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// The key expired between SETNX and GET; claim it now
		if err := s.client.Set(ctx, redisKey, value, ttl).Err(); err != nil {
			return "", false, fmt.Errorf("failed to record idempotency key: %w", err)
		}
		return value, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return stored, false, nil
}

// Forget removes a recorded key. Forgetting an absent key is a no-op.
func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
