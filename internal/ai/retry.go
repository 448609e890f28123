package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds the attempts made against a single model.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// Backoff returns the wait before the attempt following attempt (zero based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.InitialDelay * time.Duration(1<<uint(attempt))
}

func isRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// callWithRetry runs invoke until it succeeds, fails with a non-retryable error, or
// MaxRetries attempts have been made. Waits grow as InitialDelay * 2^attempt.
func callWithRetry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, sleep sleepFunc, invoke func(context.Context) (string, error)) (string, error) {
	attempts := policy.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		out, err := invoke(ctx)
		if err == nil {
			if attempt > 0 {
				logrus.WithField("attempt", attempt+1).Info("ai retry succeeded")
			}
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			return "", err
		}
		if attempt == attempts-1 {
			break
		}
		wait := policy.Backoff(attempt)
		logrus.WithFields(logrus.Fields{
			"attempt":      attempt + 1,
			"max_attempts": attempts,
			"wait":         wait,
		}).Warn("ai rate limited, backing off")
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("retries exhausted after %d attempts: %w", attempts, lastErr)
}
