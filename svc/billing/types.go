package billing

import "time"

// Status mirrors the processor's subscription status vocabulary. The empty
// value means the user never subscribed.
type Status string

const (
	StatusNone              Status = ""
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusPaused            Status = "paused"
)

// GrantsAccess reports whether the status unlocks the paid application.
func (s Status) GrantsAccess() bool {
	return s == StatusActive || s == StatusTrialing
}

// User is the authenticated principal issued by the auth provider.
type User struct {
	ID    string
	Email string
}

// Profile is the application's cached view of a user's billing relationship.
type Profile struct {
	ID                   string
	Email                string
	StripeCustomerID     string
	SubscriptionStatus   Status
	StripeSubscriptionID string
	// SubscriptionEventAt is the creation time of the processor event that
	// produced SubscriptionStatus. Zero until the first event is applied.
	SubscriptionEventAt time.Time
}

// SubscriptionUpdate is a status overwrite keyed by processor customer id.
type SubscriptionUpdate struct {
	CustomerID     string
	SubscriptionID string
	Status         Status
	EventAt        time.Time
}
