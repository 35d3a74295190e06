package retry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
)

// Func is one attempt. Attempt numbers start at 1.
type Func func(ctx context.Context, attempt int) error

type options struct {
	attempts int
	strategy Strategy
	clock    clockwork.Clock
	retryIf  func(error) bool
	onRetry  func(attempt int, err error)
}

// Option configures Do.
type Option func(*options)

// WithAttempts sets the total number of attempts, including the first one.
func WithAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithStrategy sets the backoff strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		if s != nil {
			o.strategy = s
		}
	}
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRetryIf limits retries to errors accepted by fn. Other errors are
// returned immediately.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do runs fn until it succeeds, returns a Permanent error, fails a
// WithRetryIf check, ctx is done or attempts run out. On exhaustion the
// returned error wraps both ErrExhausted and the last attempt's error.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	o := &options{
		attempts: 3,
		strategy: Default(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if o.retryIf != nil && !o.retryIf(lastErr) {
			return lastErr
		}
		if attempt == o.attempts {
			break
		}

		if o.onRetry != nil {
			o.onRetry(attempt, lastErr)
		}

		timer := o.clock.NewTimer(o.strategy.NextInterval(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.Chan():
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, o.attempts, lastErr)
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not retryable. Do returns the wrapped error as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
