package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// EventType is the processor's event type string.
type EventType string

const (
	EventCheckoutSessionCompleted EventType = "checkout.session.completed"
	EventSubscriptionCreated      EventType = "customer.subscription.created"
	EventSubscriptionUpdated      EventType = "customer.subscription.updated"
	EventSubscriptionDeleted      EventType = "customer.subscription.deleted"
)

// Session is the part of a completed checkout the reconciler needs.
type Session struct {
	ID             string
	CustomerID     string
	SubscriptionID string
}

// Event is a verified, decoded webhook event. Exactly one of Session and
// Subscription is set for the event types above.
type Event struct {
	ID           string
	Type         EventType
	CreatedAt    time.Time
	Session      *Session
	Subscription *Subscription
}

// decodeEvent converts a verified envelope and, for known types, its data
// object. The creation time orders events, so an envelope without one is
// rejected rather than read as the Unix epoch.
func decodeEvent(raw stripe.Event) (Event, error) {
	if raw.ID == "" || raw.Type == "" {
		return Event{}, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	if raw.Created <= 0 {
		return Event{}, fmt.Errorf("%w: missing created timestamp", ErrMalformedEvent)
	}

	ev := Event{
		ID:        raw.ID,
		Type:      EventType(raw.Type),
		CreatedAt: time.Unix(raw.Created, 0).UTC(),
	}
	if raw.Data == nil {
		return ev, nil
	}

	switch ev.Type {
	case EventCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &s); err != nil {
			return Event{}, fmt.Errorf("%w: checkout session: %w", ErrMalformedEvent, err)
		}
		ev.Session = &Session{ID: s.ID}
		if s.Customer != nil {
			ev.Session.CustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			ev.Session.SubscriptionID = s.Subscription.ID
		}
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(raw.Data.Raw, &s); err != nil {
			return Event{}, fmt.Errorf("%w: subscription: %w", ErrMalformedEvent, err)
		}
		sub := subscriptionFromStripe(&s)
		ev.Subscription = &sub
	}
	return ev, nil
}
