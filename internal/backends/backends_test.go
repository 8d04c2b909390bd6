package backends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/insight-coach/internal/config"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/ratelimit"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func memoryConfig() *config.Config {
	return &config.Config{
		RateLimit:        "30-M",
		RateLimitBackend: config.BackendMemory,
		MemoryBackend:    config.BackendMemory,
	}
}

func TestOpen_InMemory(t *testing.T) {
	t.Parallel()

	b, err := Open(context.Background(), memoryConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = b.Close() }()

	if _, ok := b.Memory.(*memory.InMemoryStore); !ok {
		t.Errorf("Expected *memory.InMemoryStore, got %T", b.Memory)
	}
	if b.Redis != nil || b.DB != nil {
		t.Error("Expected no external connections for the memory backends")
	}
}

func TestOpen_BadRedisURL(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.MemoryBackend = config.BackendRedis
	cfg.RedisURL = "not a url"

	if _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("Expected error for an unparsable redis URL")
	}
}

func TestLimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantErr  bool
		validate func(*testing.T, ratelimit.Limiter)
	}{
		{
			name: "memory backend",
			validate: func(t *testing.T, l ratelimit.Limiter) {
				d, err := l.Allow(context.Background(), "user-1")
				if err != nil {
					t.Fatalf("Allow() error = %v", err)
				}
				if !d.Allowed || d.Limit != 30 {
					t.Errorf("Expected first request allowed with limit 30, got %+v", d)
				}
			},
		},
		{
			name:    "redis backend without connection",
			mutate:  func(c *config.Config) { c.RateLimitBackend = config.BackendRedis },
			wantErr: true,
		},
		{
			name:    "bad rate",
			mutate:  func(c *config.Config) { c.RateLimit = "thirty" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := memoryConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			l, err := (&Backends{}).Limiter(ctx, cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Limiter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.validate != nil {
				tt.validate(t, l)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after failures", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zap.WarnLevel)
		calls := 0
		err := retry(context.Background(), 5, time.Millisecond, 2*time.Millisecond, zap.New(core), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("retry() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 calls, got %d", calls)
		}
		if logs.FilterMessage("connection_attempt_failed").Len() != 2 {
			t.Errorf("Expected 2 failed attempts logged, got %d", logs.Len())
		}
	})

	t.Run("gives up", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("connection refused")
		calls := 0
		err := retry(context.Background(), 3, time.Millisecond, time.Millisecond, zap.NewNop(), func() error {
			calls++
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("Expected wrapped sentinel, got %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 calls, got %d", calls)
		}
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := retry(ctx, 5, time.Hour, time.Hour, zap.NewNop(), func() error {
			return errors.New("connection refused")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
