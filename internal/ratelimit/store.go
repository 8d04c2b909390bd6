package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// KeyPrefix namespaces limiter keys in a shared store
const KeyPrefix = "coach:ratelimit"

// StoreLimiter adapts a ulule/limiter instance, so any of its stores can
// back the insight endpoint. Redis is the one used in multi-instance
// deployments.
type StoreLimiter struct {
	instance *limiter.Limiter
}

// NewRedisLimiter creates a limiter whose counters live in Redis.
func NewRedisLimiter(client redis.UniversalClient, rate limiter.Rate) (*StoreLimiter, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return NewStoreLimiter(store, rate), nil
}

// NewStoreLimiter wraps an existing ulule store.
func NewStoreLimiter(store limiter.Store, rate limiter.Rate) *StoreLimiter {
	return &StoreLimiter{instance: limiter.New(store, rate)}
}

// Allow counts one request for key.
func (l *StoreLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	lc, err := l.instance.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	limit := int(lc.Limit)
	count := limit - int(lc.Remaining)
	if lc.Reached {
		count = limit + 1
	}
	return Decision{
		Allowed: !lc.Reached,
		Count:   count,
		Limit:   limit,
		ResetAt: time.Unix(lc.Reset, 0),
	}, nil
}
