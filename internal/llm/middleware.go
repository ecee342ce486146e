package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultRetryBackoff is the first retry delay when none is configured.
const DefaultRetryBackoff = 500 * time.Millisecond

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every call by d. A call that runs out of time fails with ErrTimeout.
func WithTimeout(next Client, d time.Duration) Client {
	return &timeoutClient{next: next, timeout: d}
}

func (c *timeoutClient) Complete(ctx context.Context, req Request) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.next.Complete(tctx, req)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s: %v", ErrTimeout, c.timeout, err)
	}
	return text, err
}

func (c *timeoutClient) Close() error {
	return c.next.Close()
}

type retryClient struct {
	next       Client
	maxRetries uint64
	backoff    time.Duration
}

// WithRetry retries transient failures up to maxRetries times with exponential
// backoff starting at base. Missing credentials and caller cancellation are
// never retried.
func WithRetry(next Client, maxRetries int, base time.Duration) Client {
	if base <= 0 {
		base = DefaultRetryBackoff
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryClient{next: next, maxRetries: uint64(maxRetries), backoff: base}
}

func (c *retryClient) Complete(ctx context.Context, req Request) (string, error) {
	var text string
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		text, err = c.next.Complete(ctx, req)
		if err != nil && retryable(ctx, err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *retryClient) Close() error {
	return c.next.Close()
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrNoCredential) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Transient()
	}
	return false
}
