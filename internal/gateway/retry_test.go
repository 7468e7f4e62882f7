package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetrier(maxAttempts int) (*retrier, *[]time.Duration) {
	var slept []time.Duration
	logger := log.New(io.Discard, "", 0)
	r := newRetrier(NewRateLimiter(0, logger), maxAttempts, logger)
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

// ghResponse builds the populated *http.Response the go-github error types
// expect when formatting themselves.
func ghResponse(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Request: &http.Request{
			Method: http.MethodGet,
			URL:    &url.URL{Scheme: "https", Host: "api.github.com", Path: "/test"},
		},
	}
}

func serverError() error {
	return &github.ErrorResponse{Response: ghResponse(http.StatusInternalServerError)}
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	r, slept := newTestRetrier(3)

	calls := 0
	err := r.do(context.Background(), "test call", func(ctx context.Context) (*github.Response, error) {
		calls++
		if calls < 3 {
			return nil, serverError()
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Backoff between the three attempts: 1s then 2s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r, _ := newTestRetrier(3)

	calls := 0
	lastErr := serverError()
	err := r.do(context.Background(), "test call", func(ctx context.Context) (*github.Response, error) {
		calls++
		return nil, lastErr
	})

	assert.Equal(t, 3, calls)
	var exhausted *FetchExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "test call", exhausted.Op)
	assert.ErrorIs(t, err, lastErr)
}

func TestRetrier_PermanentFailureIsImmediate(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{"not found", &github.ErrorResponse{Response: ghResponse(http.StatusNotFound)}},
		{"unprocessable", &github.ErrorResponse{Response: ghResponse(http.StatusUnprocessableEntity)}},
		{"malformed body", &json.SyntaxError{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, slept := newTestRetrier(3)
			calls := 0
			err := r.do(context.Background(), "test call", func(ctx context.Context) (*github.Response, error) {
				calls++
				return nil, tc.err
			})

			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, err, tc.err)
			var exhausted *FetchExhaustedError
			assert.False(t, errors.As(err, &exhausted))
			assert.Empty(t, *slept)
		})
	}
}

func TestRetrier_RetriesRateLimitResponses(t *testing.T) {
	r, _ := newTestRetrier(2)

	calls := 0
	err := r.do(context.Background(), "test call", func(ctx context.Context) (*github.Response, error) {
		calls++
		if calls == 1 {
			return nil, &github.AbuseRateLimitError{Response: ghResponse(http.StatusForbidden)}
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrier_ObservesQuotaOnEveryResponse(t *testing.T) {
	r, slept := newTestRetrier(2)

	now := time.Now()
	r.limiter.now = func() time.Time { return now }
	r.limiter.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}

	calls := 0
	err := r.do(context.Background(), "test call", func(ctx context.Context) (*github.Response, error) {
		calls++
		resp := &github.Response{
			Rate: github.Rate{Limit: 5000, Remaining: 0, Reset: github.Timestamp{Time: now.Add(time.Minute)}},
		}
		if calls == 1 {
			return resp, serverError()
		}
		return resp, nil
	})

	require.NoError(t, err)
	// The failed first response was observed, so the limiter waited before
	// the second attempt as well as backing off.
	assert.Len(t, *slept, 2)
}
