package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// DefaultSweepInterval is how often Start evicts expired windows
const DefaultSweepInterval = time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-process limiter. Each key gets a window that starts
// on its first request; the window resets once its duration has passed.
type FixedWindow struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	now     func() time.Time
	windows map[string]*window
	log     *zap.Logger
}

// Option configures a FixedWindow
type Option func(*FixedWindow)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

// WithLogger sets the logger used by Start.
func WithLogger(log *zap.Logger) Option {
	return func(f *FixedWindow) { f.log = log }
}

// NewFixedWindow creates a limiter allowing rate.Limit requests per rate.Period.
func NewFixedWindow(rate limiter.Rate, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		limit:   int(rate.Limit),
		period:  rate.Period,
		now:     time.Now,
		windows: make(map[string]*window),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Allow counts one request for key.
func (f *FixedWindow) Allow(_ context.Context, key string) (Decision, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(f.period)}
		f.windows[key] = w
	}
	w.count++

	return Decision{
		Allowed: w.count <= f.limit,
		Count:   w.count,
		Limit:   f.limit,
		ResetAt: w.resetAt,
	}, nil
}

// Sweep removes expired windows and returns how many were removed.
func (f *FixedWindow) Sweep() int {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for key, w := range f.windows {
		if !now.Before(w.resetAt) {
			delete(f.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys currently hold a window.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// Start runs Sweep every interval until ctx is cancelled.
func (f *FixedWindow) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := f.Sweep(); n > 0 {
				f.log.Debug("rate_limit_windows_swept", zap.Int("removed", n))
			}
		}
	}
}
