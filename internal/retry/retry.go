package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vyrodovalexey/apigw/internal/util"
)

// Call performs one attempt. attempt starts at 1.
type Call func(ctx context.Context, attempt int) (*http.Response, error)

// Notify is invoked before each repeated attempt with the reason for it
// and the pause that follows.
type Notify func(attempt int, status int, err error, wait time.Duration)

// statusError marks a response whose status asks for another attempt.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.status)
}

// Do runs call under the policy. On success it returns the response,
// which may carry a non-retryable error status. When the attempts run
// out on a retryable status, it returns the last response together with
// an error matching util.ErrRetriesExhausted; the caller owns that body.
// Bodies of responses that are retried away are drained and closed.
func (p *Policy) Do(ctx context.Context, method string, call Call, notify Notify) (*http.Response, error) {
	if !p.AllowsMethod(method) {
		return call(ctx, 1)
	}

	attempt := 0
	var last *http.Response

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		attempt++
		resp, err := call(ctx, attempt)
		if err != nil {
			if !p.ShouldRetry(method, 0, err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if p.RetryableStatus(resp.StatusCode) {
			last = resp
			return nil, &statusError{status: resp.StatusCode}
		}
		return resp, nil
	},
		backoff.WithBackOff(p.NewBackOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts())), //nolint:gosec // attempts are validated positive
		backoff.WithNotify(func(err error, wait time.Duration) {
			status := 0
			var se *statusError
			if errors.As(err, &se) {
				status = se.status
				discard(last)
				last = nil
				err = nil
			}
			if notify != nil {
				notify(attempt+1, status, err, wait)
			}
		}),
	)
	if err == nil {
		return resp, nil
	}

	var se *statusError
	if errors.As(err, &se) && last != nil {
		return last, fmt.Errorf("%w after %d attempts: %w", util.ErrRetriesExhausted, attempt, err)
	}
	discard(last)
	if attempt > 1 {
		return nil, fmt.Errorf("%w after %d attempts: %w", util.ErrRetriesExhausted, attempt, err)
	}
	return nil, err
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
