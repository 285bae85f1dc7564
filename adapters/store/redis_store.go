package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "tia:",
	}
}

// Set stores a value with expiration
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrChallengeNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	return value, nil
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Consume deletes the key inside an optimistic transaction if match accepts
// its value. The comparison runs in this process so that it stays constant
// time. If another client touches the key between WATCH and EXEC the
// transaction aborts and Consume reports false.
func (s *RedisStore) Consume(ctx context.Context, key string, match func(stored string) bool) (bool, error) {
	key = s.prefix + key
	consumed := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		value, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if !match(value) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}

		consumed = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume key: %w", err)
	}

	return consumed, nil
}
