// Package backends opens the shared infrastructure the binaries need,
// chosen by configuration: Redis, Postgres, the memory store, the rate
// limiter and the job queue.
package backends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/insight-coach/internal/config"
	"github.com/benvon/insight-coach/internal/database"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/queue"
	"github.com/benvon/insight-coach/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pingTimeout = 5 * time.Second

	queueMaxAttempts  = 10
	queueInitialDelay = 2 * time.Second
	queueMaxDelay     = 30 * time.Second
)

// Backends holds the connections opened for one process
type Backends struct {
	Redis  *redis.Client
	DB     *database.DB
	Memory memory.Store
}

// Open connects whatever cfg's memory and rate limit backends require and
// builds the memory store on top.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.MemoryBackend == config.BackendRedis || cfg.RateLimitBackend == config.BackendRedis {
		client, err := OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.Redis = client
		log.Info("connected_to_redis")
	}

	switch cfg.MemoryBackend {
	case config.BackendRedis:
		b.Memory = memory.NewRedisStore(b.Redis, cfg.MemoryTTL)
	case config.BackendPostgres:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.DB = db
		if err := db.EnsureSchema(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
		log.Info("connected_to_database")
		b.Memory = memory.NewPostgresStore(database.NewMemoryRepository(db))
	default:
		b.Memory = memory.NewInMemoryStore()
	}

	log.Info("memory_store_ready", zap.String("backend", cfg.MemoryBackend))
	return b, nil
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Limiter builds the rate limiter for cfg. The in-memory limiter sweeps
// expired windows until ctx ends.
func (b *Backends) Limiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (ratelimit.Limiter, error) {
	rate, err := cfg.Rate()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate limit: %w", err)
	}

	if cfg.RateLimitBackend == config.BackendRedis {
		if b.Redis == nil {
			return nil, errors.New("redis rate limiting requires a redis connection")
		}
		return ratelimit.NewRedisLimiter(b.Redis, rate)
	}

	fw := ratelimit.NewFixedWindow(rate, ratelimit.WithLogger(log))
	go fw.Start(ctx, ratelimit.DefaultSweepInterval)
	return fw, nil
}

// Close releases every open connection
func (b *Backends) Close() error {
	var errs []error
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ConnectQueue dials RabbitMQ, retrying with exponential backoff while the
// broker starts up.
func ConnectQueue(ctx context.Context, url string, log *zap.Logger) (*queue.RabbitMQQueue, error) {
	var q *queue.RabbitMQQueue
	err := retry(ctx, queueMaxAttempts, queueInitialDelay, queueMaxDelay, log, func() error {
		var err error
		q, err = queue.NewRabbitMQQueue(url, log)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected_to_rabbitmq")
	return q, nil
}

func retry(ctx context.Context, attempts int, initial, maxDelay time.Duration, log *zap.Logger, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := initial * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}
		log.Warn("connection_attempt_failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
