package transport

import (
	"context"
	"time"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

const (
	retryInitialDelay = 100 * time.Millisecond
	retryMaxDelay     = 2 * time.Second
)

// RetryMiddleware re-attempts failed executions up to a configured number
// of retries. A result carrying GraphQL errors counts as a failure for
// retry purposes; once attempts are exhausted the last obtained result is
// returned as-is so the caller can inspect its errors.
//
// Streaming responses pass through untouched: re-running a stream would
// duplicate elements already delivered to the consumer. Subscriptions
// never reach this middleware at all, since their errors travel as stream
// elements.
type RetryMiddleware struct {
	retries int
	logger  logging.Logger
}

// NewRetryMiddleware creates retry middleware allowing `retries`
// re-attempts after the initial one.
func NewRetryMiddleware(retries int, logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RetryMiddleware{retries: retries, logger: logger}
}

// Wrap implements the Middleware interface.
func (m *RetryMiddleware) Wrap(next Executor) Executor {
	return &retryExecutor{next: next, middleware: m}
}

type retryExecutor struct {
	next       Executor
	middleware *RetryMiddleware
}

func (r *retryExecutor) Execute(ctx context.Context, req *graphql.Request) (*Response, error) {
	var lastResult *Response
	var lastErr error

	maxAttempts := r.middleware.retries + 1

	// Attempts are strictly sequential: attempt N+1 starts only after
	// attempt N has fully settled.
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}

		if attempt > 0 {
			delay := backoffDelay(attempt)
			r.middleware.logger.Debug("retrying execution",
				logging.Int("attempt", attempt),
				logging.Int("max_retries", r.middleware.retries),
				logging.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return finishRetry(lastResult, lastErr)
			}
		}

		result, err := r.next.Execute(ctx, req)
		if err != nil {
			lastErr = err
			if !errors.IsRetryable(err) {
				return nil, err
			}
			continue
		}

		// A stream is handed to the consumer immediately; it cannot be
		// re-attempted without corrupting already-delivered elements.
		if result.Streaming() {
			return result, nil
		}

		lastResult = result
		lastErr = nil
		if result.Result == nil || !result.Result.HasErrors() {
			return result, nil
		}
	}

	return finishRetry(lastResult, lastErr)
}

func finishRetry(lastResult *Response, lastErr error) (*Response, error) {
	switch {
	case lastResult != nil:
		return lastResult, nil
	case lastErr != nil:
		return nil, lastErr
	default:
		return nil, errors.ErrNoResult
	}
}

func backoffDelay(attempt int) time.Duration {
	delay := retryInitialDelay << (attempt - 1)
	if delay > retryMaxDelay || delay <= 0 {
		return retryMaxDelay
	}
	return delay
}
