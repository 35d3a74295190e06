package billing_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrymomot/subsync/svc/billing"
)

type fakeProcessor struct {
	mu sync.Mutex

	customers     []billing.Customer
	subscriptions map[string]billing.Subscription
	created       int
	searches      int
	lastCheckout  billing.CheckoutRequest

	findErr     error
	createErr   error
	checkoutErr error
	getErr      error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{subscriptions: make(map[string]billing.Subscription)}
}

func (f *fakeProcessor) FindCustomersByEmail(_ context.Context, email string) ([]billing.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []billing.Customer
	for _, c := range f.customers {
		if c.Email == email {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, email, userID string) (billing.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return billing.Customer{}, f.createErr
	}
	f.created++
	c := billing.Customer{ID: fmt.Sprintf("cus_%d", len(f.customers)+1), Email: email, UserID: userID}
	f.customers = append(f.customers, c)
	return c, nil
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (billing.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCheckout = req
	if f.checkoutErr != nil {
		return billing.CheckoutSession{}, f.checkoutErr
	}
	return billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (f *fakeProcessor) GetSubscription(_ context.Context, id string) (billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return billing.Subscription{}, f.getErr
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return billing.Subscription{}, fmt.Errorf("%w: no such subscription %s", billing.ErrUpstream, id)
	}
	return sub, nil
}

func (f *fakeProcessor) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// failingLinkStore fails SetCustomerID to simulate a database write error
// after the processor customer was created.
type failingLinkStore struct {
	*billing.MemoryStore
	err error
}

func (s failingLinkStore) SetCustomerID(context.Context, string, string) error {
	return s.err
}
