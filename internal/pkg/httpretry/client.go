// Package httpretry provides an HTTP client that retries transient failures
// of outbound API calls with exponential backoff.
package httpretry

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with a bounded number of attempts.
// The first retry waits baseDelay and every later retry doubles it.
type RetryClient struct {
	client      HTTPDoer
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option customizes a RetryClient.
type Option func(*RetryClient)

// WithBaseDelay overrides the initial backoff (default 1s).
func WithBaseDelay(d time.Duration) Option {
	return func(rc *RetryClient) { rc.baseDelay = d }
}

// WithSleep replaces the wait function. Tests use it to skip real sleeps.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(rc *RetryClient) { rc.sleep = fn }
}

// NewRetryClient creates a new RetryClient that wraps the given HTTPDoer.
// If client is nil, a default http.Client with 30s timeout is used.
// maxAttempts counts the initial request (default 3).
func NewRetryClient(client HTTPDoer, maxAttempts int, opts ...Option) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	rc := &RetryClient{
		client:      client,
		maxAttempts: maxAttempts,
		baseDelay:   1 * time.Second,
		maxDelay:    30 * time.Second,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Do executes the HTTP request, retrying on 429/5xx and network errors.
// Client errors and context cancellation are returned immediately.
// On the final attempt the response is returned as-is so the caller
// can inspect the status code and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= rc.maxAttempts; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 1 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.Delay(attempt - 1)
			log.Printf("httpretry: attempt %d/%d for %s %s%s (waiting %s)",
				attempt, rc.maxAttempts, req.Method, req.URL.Host, req.URL.Path, delay)

			if err := rc.sleep(req.Context(), delay); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if attempt == rc.maxAttempts {
			return resp, nil
		}

		// drain for connection reuse
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("httpretry: giving up after %d attempts: %w", rc.maxAttempts, lastErr)
}

// Run calls op until it succeeds, up to maxAttempts times, waiting with
// the same backoff as Do between attempts. Use it when the whole exchange
// (request, status and body checks) has to be retried, not just transport
// failures. The error of the last attempt is returned.
func (rc *RetryClient) Run(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= rc.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := rc.Delay(attempt - 1)
			log.Printf("httpretry: attempt %d/%d after %v (waiting %s)", attempt, rc.maxAttempts, lastErr, delay)
			if err := rc.sleep(ctx, delay); err != nil {
				return lastErr
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

// Delay returns the wait before the given retry (1-based): baseDelay * 2^(retry-1),
// capped at maxDelay.
func (rc *RetryClient) Delay(retry int) time.Duration {
	d := rc.baseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= rc.maxDelay {
			return rc.maxDelay
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryableStatus returns true if the HTTP status code indicates a
// transient server error that should be retried.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
