package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy configures the retry decorator.
type RetryPolicy struct {
	MaxRetries  uint64
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultRetryPolicy suits interactive generation latencies.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		InitialWait: 1 * time.Second,
		MaxWait:     10 * time.Second,
	}
}

// retryingClient retries transient failures with exponential backoff.
type retryingClient struct {
	inner  Client
	policy RetryPolicy
}

// WithRetry wraps a Client with retry on rate limits, provider outages and
// a single retry for malformed output. Context cancellation is respected.
func WithRetry(c Client, policy RetryPolicy) Client {
	return &retryingClient{inner: c, policy: policy}
}

func (r *retryingClient) Complete(ctx context.Context, req Request) (*Result, error) {
	backoff := retry.NewExponential(r.policy.InitialWait)
	backoff = retry.WithCappedDuration(r.policy.MaxWait, backoff)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(r.policy.MaxRetries, backoff)

	var result *Result
	badOutputRetried := false

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := r.inner.Complete(ctx, req)
		if err == nil {
			result = resp
			return nil
		}

		var rl *RateLimitError
		if errors.As(err, &rl) {
			return retry.RetryableError(err)
		}
		var unavail *UnavailableError
		if errors.As(err, &unavail) {
			return retry.RetryableError(err)
		}
		// Malformed output gets exactly one regeneration attempt.
		var bad *BadOutputError
		if errors.As(err, &bad) && !badOutputRetried {
			badOutputRetried = true
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *retryingClient) Model() string { return r.inner.Model() }
