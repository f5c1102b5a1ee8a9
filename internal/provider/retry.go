package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// retryPolicy retries transient HTTP failures with quadratic backoff.
type retryPolicy struct {
	attempts int           // retries after the first try
	base     time.Duration // backoff unit; attempt n waits n*n*base plus jitter
}

const defaultRetryBase = time.Second

// statusError is a non-2xx reply from a model server.
type statusError struct {
	statusCode int
	body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.body)
}

func (e *statusError) retryable() bool {
	return e.statusCode >= 500 || e.statusCode == http.StatusTooManyRequests
}

// do executes the request built by buildReq, retrying network failures, 5xx
// and 429. Context cancellation is never retried.
func (p retryPolicy) do(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.attempts; attempt++ {
		if attempt > 0 {
			base := time.Duration(attempt*attempt) * p.base
			backoff := base + time.Duration(rand.Int64N(int64(base/2+1)))
			logger.Warn("retrying model request", "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			serr := &statusError{statusCode: resp.StatusCode, body: string(body)}
			if !serr.retryable() {
				return nil, serr
			}
			lastErr = serr
			continue
		}

		return resp, nil
	}

	if p.attempts == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", p.attempts+1, lastErr)
}
