package billing

import "context"

// Customer is the processor's billable entity.
type Customer struct {
	ID    string
	Email string
	// UserID is the metadata tag written at creation time. Empty for
	// customers created outside this service.
	UserID string
}

// Subscription is the processor's authoritative subscription snapshot.
type Subscription struct {
	ID         string
	CustomerID string
	Status     Status
}

// CheckoutRequest describes a hosted subscription checkout.
type CheckoutRequest struct {
	PriceID           string
	CustomerID        string
	CustomerEmail     string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	TrialDays         int
}

// CheckoutSession is a single-use hosted checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// Processor is the subset of the payment processor API the service needs.
// Implementations translate transport failures into ErrUpstreamUnavailable,
// rejected prices into ErrInvalidPrice and other rejections into ErrUpstream.
type Processor interface {
	FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error)
	CreateCustomer(ctx context.Context, email, userID string) (Customer, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (Subscription, error)
}
