package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKV is the subset of redis.Cmdable the store needs
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each user's memory as a JSON string at coach:memory:<userId>.
type RedisStore struct {
	rdb redisKV
	ttl time.Duration
}

// NewRedisStore creates a store. A ttl of zero keeps keys forever; otherwise
// every write refreshes the expiry.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return fmt.Sprintf("coach:memory:%s", userID)
}

// Get returns the stored memory, or the zero Memory when none exists.
func (s *RedisStore) Get(ctx context.Context, userID string) (Memory, error) {
	if err := validateUserID(userID); err != nil {
		return Memory{}, err
	}

	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Memory{}, nil
		}
		return Memory{}, fmt.Errorf("failed to get memory from redis: %w", err)
	}

	var m Memory
	if err := json.Unmarshal(raw, &m); err != nil {
		return Memory{}, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	return m, nil
}

// Set replaces the user's memory.
func (s *RedisStore) Set(ctx context.Context, userID string, m Memory) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(userID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write memory to redis: %w", err)
	}
	return nil
}

// Delete removes the user's memory. Deleting a missing entry is not an error.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete memory from redis: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
