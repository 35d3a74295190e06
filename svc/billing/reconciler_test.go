package billing_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/svc/billing"
)

var t0 = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func subEvent(id string, typ billing.EventType, status billing.Status, at time.Time) billing.Event {
	return billing.Event{
		ID:           id,
		Type:         typ,
		CreatedAt:    at,
		Subscription: &billing.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: status},
	}
}

func linkedStore() *billing.MemoryStore {
	return billing.NewMemoryStore(billing.Profile{ID: "user-1", StripeCustomerID: "cus_1"})
}

func TestApply_ConvergesToLastStatus(t *testing.T) {
	store := linkedStore()
	r := billing.NewReconciler(store, newFakeProcessor())

	statuses := []billing.Status{billing.StatusIncomplete, billing.StatusPastDue, billing.StatusTrialing, billing.StatusActive}
	for i, s := range statuses {
		out, err := r.Apply(context.Background(), subEvent("evt", billing.EventSubscriptionUpdated, s, t0.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeApplied, out)
	}

	p, _ := store.GetProfile(context.Background(), "user-1")
	assert.Equal(t, billing.StatusActive, p.SubscriptionStatus)
	assert.Equal(t, "sub_1", p.StripeSubscriptionID)
}

func TestApply_IdempotentAndStaleGuard(t *testing.T) {
	store := linkedStore()
	r := billing.NewReconciler(store, newFakeProcessor())
	ctx := context.Background()

	newer := subEvent("evt_2", billing.EventSubscriptionDeleted, billing.StatusCanceled, t0.Add(time.Minute))
	older := subEvent("evt_1", billing.EventSubscriptionUpdated, billing.StatusActive, t0)

	out, err := r.Apply(ctx, newer)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeApplied, out)

	out, err = r.Apply(ctx, newer)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeApplied, out, "same event twice converges")

	out, err = r.Apply(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeStale, out)

	p, _ := store.GetProfile(ctx, "user-1")
	assert.Equal(t, billing.StatusCanceled, p.SubscriptionStatus)
}

func TestApply_CheckoutCompletedFetchesSubscription(t *testing.T) {
	store := linkedStore()
	proc := newFakeProcessor()
	proc.subscriptions["sub_9"] = billing.Subscription{ID: "sub_9", CustomerID: "cus_1", Status: billing.StatusTrialing}
	r := billing.NewReconciler(store, proc)

	out, err := r.Apply(context.Background(), billing.Event{
		ID:        "evt_1",
		Type:      billing.EventCheckoutSessionCompleted,
		CreatedAt: t0,
		Session:   &billing.Session{ID: "cs_1", CustomerID: "cus_1", SubscriptionID: "sub_9"},
	})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeApplied, out)

	p, _ := store.GetProfile(context.Background(), "user-1")
	assert.Equal(t, billing.StatusTrialing, p.SubscriptionStatus)
	assert.Equal(t, "sub_9", p.StripeSubscriptionID)
}

func TestApply_CheckoutWithoutSubscriptionIsSkipped(t *testing.T) {
	r := billing.NewReconciler(linkedStore(), newFakeProcessor())
	out, err := r.Apply(context.Background(), billing.Event{
		ID:      "evt_1",
		Type:    billing.EventCheckoutSessionCompleted,
		Session: &billing.Session{ID: "cs_1", CustomerID: "cus_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSkipped, out)
}

func TestApply_RaceWithCustomerLink(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := billing.NewMemoryStore(billing.Profile{ID: "user-1"})
	proc := newFakeProcessor()
	proc.subscriptions["sub_1"] = billing.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: billing.StatusActive}
	clock := clockwork.NewFakeClock()
	r := billing.NewReconciler(store, proc, billing.WithReconcilerClock(clock))

	type result struct {
		out billing.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := r.Apply(ctx, billing.Event{
			ID:        "evt_1",
			Type:      billing.EventCheckoutSessionCompleted,
			CreatedAt: t0,
			Session:   &billing.Session{ID: "cs_1", CustomerID: "cus_1", SubscriptionID: "sub_1"},
		})
		done <- result{out, err}
	}()

	// First lookup missed; the resolver's write lands during the backoff.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.NoError(t, store.SetCustomerID(ctx, "user-1", "cus_1"))
	clock.Advance(time.Second)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, billing.OutcomeApplied, res.out)

	p, _ := store.GetProfile(ctx, "user-1")
	assert.Equal(t, billing.StatusActive, p.SubscriptionStatus)
}

// countingStore counts ApplySubscription calls.
type countingStore struct {
	*billing.MemoryStore
	calls atomic.Int32
}

func (s *countingStore) ApplySubscription(ctx context.Context, u billing.SubscriptionUpdate) error {
	s.calls.Add(1)
	return s.MemoryStore.ApplySubscription(ctx, u)
}

func TestApply_GivesUpAfterBoundedAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := &countingStore{MemoryStore: billing.NewMemoryStore()}
	clock := clockwork.NewFakeClock()
	r := billing.NewReconciler(store, newFakeProcessor(),
		billing.WithAttempts(5),
		billing.WithBackoff(time.Second),
		billing.WithReconcilerClock(clock),
	)

	done := make(chan error, 1)
	go func() {
		_, err := r.Apply(ctx, subEvent("evt_1", billing.EventSubscriptionCreated, billing.StatusActive, t0))
		done <- err
	}()

	for range 4 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrProfileNotFound)
	assert.Equal(t, int32(5), store.calls.Load())
}

func TestApply_UnknownTypeIgnored(t *testing.T) {
	r := billing.NewReconciler(linkedStore(), newFakeProcessor())
	out, err := r.Apply(context.Background(), billing.Event{ID: "evt_1", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeIgnored, out)
}

func TestApply_UpstreamFailureSurfaces(t *testing.T) {
	proc := newFakeProcessor()
	proc.getErr = billing.ErrUpstreamUnavailable
	r := billing.NewReconciler(linkedStore(), proc)

	_, err := r.Apply(context.Background(), billing.Event{
		ID:      "evt_1",
		Type:    billing.EventCheckoutSessionCompleted,
		Session: &billing.Session{CustomerID: "cus_1", SubscriptionID: "sub_1"},
	})
	assert.ErrorIs(t, err, billing.ErrUpstreamUnavailable)
}
