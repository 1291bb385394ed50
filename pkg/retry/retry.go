package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// LedgerConfig is the payout policy: three attempts, waiting 5s x attempt.
func LedgerConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseBackoff: 5 * time.Second,
	}
}

// Backoff is the wait after the given failed attempt (1-based).
func (c Config) Backoff(attempt int) time.Duration {
	return c.BaseBackoff * time.Duration(attempt)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ClockSleeper sleeps on the given clock so tests can use a fake one.
func ClockSleeper(clock clockwork.Clock) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(d):
			return nil
		}
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Fold calls attempt with n = 1..MaxAttempts until one succeeds. It returns
// the result, the number of attempts made and, on failure, the last error.
func Fold[T any](ctx context.Context, cfg Config, sleep Sleeper, attempt func(ctx context.Context, n int) (T, error)) (T, int, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for n := 1; n <= cfg.MaxAttempts; n++ {
		result, err := attempt(ctx, n)
		if err == nil {
			return result, n, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, n, perm.err
		}
		if errors.Is(err, context.Canceled) {
			return zero, n, err
		}
		if n == cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, cfg.Backoff(n)); err != nil {
			return zero, n, fmt.Errorf("%w (last attempt: %v)", err, lastErr)
		}
	}

	return zero, cfg.MaxAttempts, fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
