package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/subsync/pkg/logger"
)

// CustomerResolver finds or creates the processor customer for a user and
// persists the link on the profile.
type CustomerResolver struct {
	store     ProfileStore
	processor Processor
	log       *slog.Logger
}

// NewCustomerResolver panics if store or processor is nil.
func NewCustomerResolver(store ProfileStore, processor Processor, log *slog.Logger) *CustomerResolver {
	if store == nil {
		panic("billing: ProfileStore is required")
	}
	if processor == nil {
		panic("billing: Processor is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CustomerResolver{store: store, processor: processor, log: log.With(logger.Component("customer_resolver"))}
}

// Resolve returns the user's customer id. A linked profile is answered
// without calling the processor. Otherwise an existing customer with the same
// email is adopted (unless it is tagged with another user or already linked
// to another profile) or a new one is created, and the id is written back.
// A failed write is logged and the id is still returned: the next call finds
// the customer by email.
func (r *CustomerResolver) Resolve(ctx context.Context, user User) (string, error) {
	user.Email = strings.TrimSpace(user.Email)
	if user.ID == "" || user.Email == "" {
		return "", ErrInvalidUser
	}
	log := r.log.With(logger.UserID(user.ID))

	profile, err := r.store.GetProfile(ctx, user.ID)
	switch {
	case err == nil && profile.StripeCustomerID != "":
		return profile.StripeCustomerID, nil
	case err != nil && !errors.Is(err, ErrProfileNotFound):
		return "", err
	}

	drift := err == nil && profile.Email != "" && !strings.EqualFold(profile.Email, user.Email)
	log.WarnContext(ctx, "customer link missing, searching by email",
		slog.Bool("profile_found", err == nil),
		slog.Bool("email_changed", drift),
	)

	candidates, err := r.processor.FindCustomersByEmail(ctx, user.Email)
	if err != nil {
		return "", err
	}

	customerID := pickCustomer(candidates, user.ID)
	adopted := customerID != ""
	if adopted {
		log.InfoContext(ctx, "existing customer adopted", logger.CustomerID(customerID))
	} else {
		if len(candidates) > 0 {
			log.WarnContext(ctx, "email matches customers owned by other users", slog.Int("count", len(candidates)))
		}
		if customerID, err = r.create(ctx, user); err != nil {
			return "", err
		}
	}

	linked, err := r.link(ctx, user.ID, customerID)
	if errors.Is(err, ErrCustomerAlreadyLinked) && adopted {
		log.WarnContext(ctx, "adopted customer is linked to another profile, creating a new one",
			logger.CustomerID(customerID),
		)
		if customerID, err = r.create(ctx, user); err != nil {
			return "", err
		}
		linked, err = r.link(ctx, user.ID, customerID)
	}

	switch {
	case err == nil:
		return linked, nil
	case errors.Is(err, ErrCustomerAlreadyLinked):
		return "", err
	default:
		log.ErrorContext(ctx, "failed to persist customer link",
			logger.CustomerID(customerID),
			logger.Error(fmt.Errorf("set customer id: %w", err)),
		)
		return customerID, nil
	}
}

func (r *CustomerResolver) create(ctx context.Context, user User) (string, error) {
	c, err := r.processor.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", err
	}
	r.log.InfoContext(ctx, "customer created", logger.UserID(user.ID), logger.CustomerID(c.ID))
	return c.ID, nil
}

// link stores customerID on the profile and returns the id that ends up
// linked. When another request linked this profile first, its id wins.
// ErrCustomerAlreadyLinked with the profile still unlinked means customerID
// belongs to a different profile.
func (r *CustomerResolver) link(ctx context.Context, userID, customerID string) (string, error) {
	err := r.store.SetCustomerID(ctx, userID, customerID)
	if err == nil {
		return customerID, nil
	}
	if !errors.Is(err, ErrCustomerAlreadyLinked) {
		return "", err
	}

	p, gerr := r.store.GetProfile(ctx, userID)
	if gerr == nil && p.StripeCustomerID != "" {
		return p.StripeCustomerID, nil
	}
	return "", err
}

// pickCustomer prefers a customer tagged with userID, then an untagged one.
func pickCustomer(candidates []Customer, userID string) string {
	var untagged string
	for _, c := range candidates {
		switch c.UserID {
		case userID:
			return c.ID
		case "":
			if untagged == "" {
				untagged = c.ID
			}
		}
	}
	return untagged
}
