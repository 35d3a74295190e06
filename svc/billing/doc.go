// Package billing keeps a user's profile in step with their subscription at
// the payment processor.
//
// CustomerResolver links a user to exactly one processor customer,
// CheckoutInitiator opens hosted subscription checkouts, WebhookReceiver
// verifies and dispatches processor events and Reconciler writes the
// resulting subscription status onto the matching profile.
//
// Profiles are the only shared mutable state. Every write is scoped by an
// equality filter (user id or customer id) and subscription writes carry the
// processor event time so an older event never overwrites a newer one.
package billing
