package billing

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dmitrymomot/subsync/pkg/logger"
)

// CheckoutParams is a request to start a hosted subscription checkout.
// Exactly one of CustomerID and CustomerEmail is needed; CustomerID wins.
type CheckoutParams struct {
	PriceID       string
	CustomerID    string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	UserID        string
	// TrialDays overrides the configured default when set. Zero disables
	// the trial.
	TrialDays *int
}

// CheckoutInitiator creates hosted checkout sessions.
type CheckoutInitiator struct {
	processor Processor
	trialDays int
	log       *slog.Logger
}

// NewCheckoutInitiator panics if processor is nil.
func NewCheckoutInitiator(processor Processor, defaultTrialDays int, log *slog.Logger) *CheckoutInitiator {
	if processor == nil {
		panic("billing: Processor is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CheckoutInitiator{
		processor: processor,
		trialDays: max(defaultTrialDays, 0),
		log:       log.With(logger.Component("checkout")),
	}
}

// Create validates p and asks the processor for a checkout session.
func (c *CheckoutInitiator) Create(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	if err := p.validate(); err != nil {
		return CheckoutSession{}, err
	}

	trial := c.trialDays
	if p.TrialDays != nil {
		trial = max(*p.TrialDays, 0)
	}

	session, err := c.processor.CreateCheckoutSession(ctx, CheckoutRequest{
		PriceID:           p.PriceID,
		CustomerID:        p.CustomerID,
		CustomerEmail:     p.CustomerEmail,
		SuccessURL:        p.SuccessURL,
		CancelURL:         p.CancelURL,
		ClientReferenceID: p.UserID,
		TrialDays:         trial,
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	c.log.InfoContext(ctx, "checkout session created",
		logger.SessionID(session.ID),
		logger.CustomerID(p.CustomerID),
		slog.String("price_id", p.PriceID),
		slog.Int("trial_days", trial),
	)
	return session, nil
}

// validate reports every missing or unusable field at once.
func (p CheckoutParams) validate() error {
	var errs FieldErrors
	required := func(field, value string) bool {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, FieldError{Field: field, Message: "is required", Err: ErrMissingFields})
			return false
		}
		return true
	}
	redirect := func(field, value string) {
		if !required(field, value) {
			return
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{Field: field, Message: "must be an absolute http or https URL", Err: ErrInvalidURL})
		}
	}

	required("priceId", p.PriceID)
	if p.CustomerID == "" && strings.TrimSpace(p.CustomerEmail) == "" {
		errs = append(errs, FieldError{Field: "customerId", Message: "customerId or customerEmail is required", Err: ErrMissingFields})
	}
	redirect("successUrl", p.SuccessURL)
	redirect("cancelUrl", p.CancelURL)

	if len(errs) > 0 {
		return errs
	}
	return nil
}
