// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"
)

// RateLimiter tracks the primary API quota as observed on responses and
// suspends callers once the quota drops to the safety margin, until the
// reported reset time. It is shared by every fetch in flight; last observation
// wins, which is safe because quota only decreases within a window.
type RateLimiter struct {
	mu        sync.Mutex
	observed  bool
	remaining int
	resetAt   time.Time

	margin int
	logger *log.Logger

	// Injected for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRateLimiter creates a limiter that treats remaining <= margin as
// exhausted.
func NewRateLimiter(margin int, logger *log.Logger) *RateLimiter {
	return &RateLimiter{
		margin: margin,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until the quota window resets if the last observed quota is
// exhausted. It only returns an error when the context is cancelled while
// waiting; quota exhaustion itself is never an error.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	var wait time.Duration
	if l.observed && l.remaining <= l.margin {
		if until := l.resetAt.Sub(l.now()); until > 0 {
			// One extra second so the reset has actually happened server-side.
			wait = until + time.Second
		}
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	l.logger.Printf("Rate limit hit, waiting %s for quota reset", wait.Round(time.Second))
	return l.sleep(ctx, wait)
}

// Observe records the quota state from a response. Responses without rate
// headers produce a zero-limit Rate and are ignored.
func (l *RateLimiter) Observe(rate github.Rate) {
	if rate.Limit == 0 {
		return
	}
	l.mu.Lock()
	l.observed = true
	l.remaining = rate.Remaining
	l.resetAt = rate.Reset.Time
	l.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
