package takeoff

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	// retryAttempts is the maximum number of retry attempts.
	retryAttempts = 4
	// retryDelay is the initial retry delay.
	retryDelay = 1 * time.Second
	// retryMaxDelay is the maximum retry delay.
	retryMaxDelay = 10 * time.Second
	// retryMaxJitter adds randomness to prevent thundering herd.
	retryMaxJitter = 500 * time.Millisecond
)

// RetryTransport wraps an http.RoundTripper with retry logic using
// exponential backoff with jitter. Only idempotent GET requests are retried;
// a merge call gets exactly one attempt.
type RetryTransport struct {
	Base http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface with retry logic.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		t.Base = http.DefaultTransport
	}
	if req.Method != http.MethodGet {
		return t.Base.RoundTrip(req)
	}

	var resp *http.Response
	var lastErr error

	err := retry.Do(
		func() error {
			var err error
			start := time.Now()
			resp, err = t.Base.RoundTrip(req) //nolint:bodyclose // Response body is handled by caller in successful cases
			elapsed := time.Since(start)
			if err != nil {
				slog.ErrorContext(req.Context(), "HTTP request failed",
					"url", req.URL.String(),
					"error", err,
					"elapsed", elapsed)
				lastErr = err
				return err
			}

			// Retry on 429 (rate limit) or 5xx server errors. GitHub also
			// returns 403 for rate limit errors - check headers to confirm.
			shouldRetry := resp.StatusCode == http.StatusTooManyRequests ||
				(resp.StatusCode >= 500 && resp.StatusCode < 600)
			if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-Ratelimit-Remaining") == "0" {
				shouldRetry = true
			}

			if shouldRetry {
				if closeErr := resp.Body.Close(); closeErr != nil {
					slog.DebugContext(req.Context(), "failed to close response body for retry", "error", closeErr)
				}
				slog.InfoContext(req.Context(), "HTTP request will be retried",
					"status", resp.StatusCode,
					"url", req.URL.String())
				lastErr = &retryableError{StatusCode: resp.StatusCode}
				return lastErr
			}
			return nil
		},
		retry.Context(req.Context()),
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxJitter(retryMaxJitter),
		retry.RetryIf(func(err error) bool {
			var retryErr *retryableError
			return errors.As(err, &retryErr)
		}),
	)
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return resp, nil
}

// retryableError indicates an error that should be retried.
type retryableError struct {
	StatusCode int
}

func (e *retryableError) Error() string {
	return http.StatusText(e.StatusCode)
}
