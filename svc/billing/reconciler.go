package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/retry"
)

// Outcome tells the webhook receiver what happened to an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the event carried nothing to reconcile.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeStale means a newer event had already been applied.
	OutcomeStale Outcome = "stale"
	// OutcomeIgnored is used for event types nobody handles.
	OutcomeIgnored Outcome = "ignored"
)

// Reconciler maps subscription events onto profiles.
type Reconciler struct {
	store     ProfileStore
	processor Processor
	attempts  int
	backoff   retry.Strategy
	clock     clockwork.Clock
	log       *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithAttempts sets how many times a not-yet-linked profile is looked up.
func WithAttempts(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithBackoff sets the fixed delay between lookups.
func WithBackoff(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d >= 0 {
			r.backoff = retry.Fixed{Interval: d}
		}
	}
}

// WithReconcilerClock replaces the clock used between attempts.
func WithReconcilerClock(c clockwork.Clock) ReconcilerOption {
	return func(r *Reconciler) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithReconcilerLogger sets the logger.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// NewReconciler defaults to 5 attempts one second apart. It panics if store
// or processor is nil.
func NewReconciler(store ProfileStore, processor Processor, opts ...ReconcilerOption) *Reconciler {
	if store == nil {
		panic("billing: ProfileStore is required")
	}
	if processor == nil {
		panic("billing: Processor is required")
	}
	r := &Reconciler{
		store:     store,
		processor: processor,
		attempts:  5,
		backoff:   retry.Fixed{Interval: time.Second},
		clock:     clockwork.NewRealClock(),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("reconciler"))
	return r
}

// Apply reconciles one event. A completed checkout without a subscription
// is skipped; otherwise the subscription is fetched from the processor,
// since session payloads can lag its status. When no profile is linked to
// the customer yet, the lookup is retried; after the last attempt the
// returned error wraps ErrProfileNotFound so the processor redelivers.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	var sub Subscription

	switch ev.Type {
	case EventCheckoutSessionCompleted:
		if ev.Session == nil || ev.Session.SubscriptionID == "" {
			return OutcomeSkipped, nil
		}
		fetched, err := r.processor.GetSubscription(ctx, ev.Session.SubscriptionID)
		if err != nil {
			return "", err
		}
		sub = fetched
		if ev.Session.CustomerID != "" {
			sub.CustomerID = ev.Session.CustomerID
		}
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		if ev.Subscription == nil {
			return "", fmt.Errorf("%w: subscription object missing", ErrMalformedEvent)
		}
		sub = *ev.Subscription
	default:
		return OutcomeIgnored, nil
	}

	if sub.CustomerID == "" {
		return "", fmt.Errorf("%w: subscription %s has no customer", ErrMalformedEvent, sub.ID)
	}

	update := SubscriptionUpdate{
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.ID,
		Status:         sub.Status,
		EventAt:        ev.CreatedAt,
	}
	log := r.log.With(
		logger.EventID(ev.ID),
		logger.EventType(string(ev.Type)),
		logger.CustomerID(update.CustomerID),
		logger.SubscriptionID(update.SubscriptionID),
	)

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		return r.store.ApplySubscription(ctx, update)
	},
		retry.WithAttempts(r.attempts),
		retry.WithStrategy(r.backoff),
		retry.WithClock(r.clock),
		retry.WithRetryIf(func(err error) bool { return errors.Is(err, ErrProfileNotFound) }),
		retry.WithOnRetry(func(attempt int, err error) {
			log.InfoContext(ctx, "profile not linked yet, retrying", logger.RetryCount(attempt))
		}),
	)

	switch {
	case err == nil:
		log.InfoContext(ctx, "subscription status applied", logger.Status(string(update.Status)))
		return OutcomeApplied, nil
	case errors.Is(err, ErrStaleEvent):
		log.InfoContext(ctx, "stale subscription event skipped", logger.Status(string(update.Status)))
		return OutcomeStale, nil
	case errors.Is(err, ErrProfileNotFound):
		log.ErrorContext(ctx, "no profile linked to customer after retries",
			logger.RetryCount(r.attempts),
			logger.Error(err),
		)
		return "", err
	default:
		return "", err
	}
}
