// Package retry runs an operation a bounded number of times with a pluggable
// backoff Strategy (Fixed, Linear, Exponential). Waiting goes through a
// clockwork.Clock so tests can advance time instead of sleeping.
//
//	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
//		return store.LinkStatus(ctx, customerID, status)
//	},
//		retry.WithAttempts(5),
//		retry.WithStrategy(retry.Fixed{Interval: time.Second}),
//		retry.WithRetryIf(func(err error) bool { return errors.Is(err, ErrNotFound) }),
//	)
package retry
