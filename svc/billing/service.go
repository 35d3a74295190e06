package billing

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/subsync/pkg/logger"
)

// Service bundles the billing components around one store and processor.
type Service struct {
	Customers  *CustomerResolver
	Checkout   *CheckoutInitiator
	Reconciler *Reconciler
	Webhooks   *WebhookReceiver

	store ProfileStore
}

// NewService wires the components from cfg and registers the reconciler for
// every subscription-related event type.
func NewService(cfg Config, store ProfileStore, processor Processor, events EventLog, log *slog.Logger, opts ...ReconcilerOption) *Service {
	if log == nil {
		log = logger.Discard()
	}

	base := []ReconcilerOption{
		WithAttempts(cfg.ReconcileAttempts),
		WithBackoff(cfg.ReconcileBackoff),
		WithReconcilerLogger(log),
	}
	reconciler := NewReconciler(store, processor, append(base, opts...)...)

	receiver := NewWebhookReceiver(cfg.StripeWebhookSecret, cfg.WebhookTolerance, events, log)
	for _, t := range []EventType{
		EventCheckoutSessionCompleted,
		EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
	} {
		receiver.On(t, reconciler.Apply)
	}

	return &Service{
		Customers:  NewCustomerResolver(store, processor, log),
		Checkout:   NewCheckoutInitiator(processor, cfg.TrialDays, log),
		Reconciler: reconciler,
		Webhooks:   receiver,
		store:      store,
	}
}

// Profile returns the caller's profile.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	return s.store.GetProfile(ctx, userID)
}
