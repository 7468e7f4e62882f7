package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
)

const defaultBaseDelay = time.Second

// retrier executes one logical API call with bounded exponential backoff.
// The delay sequence is baseDelay, 2*baseDelay, 4*baseDelay, ...
type retrier struct {
	limiter     *RateLimiter
	maxAttempts int
	baseDelay   time.Duration
	logger      *log.Logger

	// Injected for tests.
	sleep func(context.Context, time.Duration) error
}

func newRetrier(limiter *RateLimiter, maxAttempts int, logger *log.Logger) *retrier {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &retrier{
		limiter:     limiter,
		maxAttempts: maxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// do runs fn until it succeeds, fails permanently, or the attempt budget runs
// out. The rate limiter is consulted before every attempt and fed the quota
// headers of every response, including failed ones. fn may return a nil
// response when the transport itself failed.
func (r *retrier) do(ctx context.Context, op string, fn func(ctx context.Context) (*github.Response, error)) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.limiter.Acquire(ctx); err != nil {
			return err
		}
		resp, err := fn(ctx)
		if resp != nil {
			r.limiter.Observe(resp.Rate)
		}
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		if attempt < r.maxAttempts {
			delay := r.baseDelay << (attempt - 1)
			r.logger.Printf("  %s failed (attempt %d/%d), retrying in %s: %v", op, attempt, r.maxAttempts, delay, err)
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return &FetchExhaustedError{Op: op, Attempts: r.maxAttempts, Err: lastErr}
}

// retryable classifies a call failure. Rate-limit responses and 5xx are worth
// retrying; other structured 4xx responses and malformed bodies are permanent.
// Anything else is a transport-level failure (timeout, connection reset) and
// is retried.
func retryable(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		return code >= 500 || code == http.StatusTooManyRequests
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false
	}
	return true
}

// isNotFound matches the 404 a listing call gets for a repository that
// disappeared or is inaccessible.
func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
