// Package ratelimit decides whether a caller may make another insight
// request in the current window.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter counts requests per key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
	ResetAt time.Time
}

// Remaining is how many more requests fit in the current window.
func (d Decision) Remaining() int {
	return max(0, d.Limit-d.Count)
}

// RetryAfter is the wait until the window resets, rounded up to whole
// seconds and never below one.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return (wait + time.Second - 1).Truncate(time.Second)
}

// LimitError carries the rejecting decision so callers can set response
// headers.
type LimitError struct {
	Decision Decision
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit of %d requests exceeded, resets at %s", e.Decision.Limit, e.Decision.ResetAt.UTC().Format(time.RFC3339))
}
