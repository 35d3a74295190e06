package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/dmitrymomot/subsync/pkg/logger"
)

// customerSearchLimit bounds how many same-email customers are inspected.
const customerSearchLimit = 10

// StripeProcessor implements Processor on top of the Stripe API. Every call
// goes through a circuit breaker; an open breaker fails fast with
// ErrUpstreamUnavailable.
type StripeProcessor struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker[any]
	log     *slog.Logger
}

// StripeOption configures a StripeProcessor.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	httpClient *http.Client
	log        *slog.Logger
}

// WithStripeHTTPClient sets the HTTP client used for API calls.
func WithStripeHTTPClient(c *http.Client) StripeOption {
	return func(o *stripeOptions) { o.httpClient = c }
}

// WithStripeLogger sets the logger for breaker state changes.
func WithStripeLogger(l *slog.Logger) StripeOption {
	return func(o *stripeOptions) { o.log = l }
}

// NewStripeProcessor creates a Stripe-backed Processor from cfg.
func NewStripeProcessor(cfg Config, opts ...StripeOption) (*StripeProcessor, error) {
	if cfg.StripeSecretKey == "" {
		return nil, ErrMissingAPIKey
	}

	o := &stripeOptions{log: logger.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        o.httpClient,
		MaxNetworkRetries: stripe.Int64(cfg.StripeMaxNetworkRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.StripeAPIURL != "" {
		backendCfg.URL = stripe.String(cfg.StripeAPIURL)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	log := o.log.With(logger.Component("stripe"))
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// Rejected requests mean the processor is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})

	return &StripeProcessor{
		api:     client.New(cfg.StripeSecretKey, stripe.NewBackendsWithConfig(backendCfg)),
		breaker: breaker,
		log:     log,
	}, nil
}

// FindCustomersByEmail lists customers with an exact email match.
func (p *StripeProcessor) FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		params := &stripe.CustomerListParams{Email: stripe.String(email)}
		params.Context = ctx
		params.Limit = stripe.Int64(customerSearchLimit)

		var found []Customer
		it := p.api.Customers.List(params)
		for it.Next() && len(found) < customerSearchLimit {
			found = append(found, customerFromStripe(it.Customer()))
		}
		return found, it.Err()
	})
	if err != nil {
		return nil, mapStripeError("list customers", err)
	}
	found, _ := res.([]Customer)
	return found, nil
}

// CreateCustomer creates a customer tagged with the user id. The idempotency
// key makes a retried creation return the same customer.
func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, userID string) (Customer, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		params := &stripe.CustomerParams{Email: stripe.String(email)}
		params.Context = ctx
		params.AddMetadata(metadataUserID, userID)
		params.SetIdempotencyKey("customer-create-" + userID)
		return p.api.Customers.New(params)
	})
	if err != nil {
		return Customer{}, mapStripeError("create customer", err)
	}
	return customerFromStripe(res.(*stripe.Customer)), nil
}

// CreateCheckoutSession creates a subscription-mode hosted checkout with
// promotion codes enabled and an optional trial.
func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		params := &stripe.CheckoutSessionParams{
			Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
			LineItems: []*stripe.CheckoutSessionLineItemParams{
				{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
			},
			SuccessURL:          stripe.String(req.SuccessURL),
			CancelURL:           stripe.String(req.CancelURL),
			AllowPromotionCodes: stripe.Bool(true),
		}
		params.Context = ctx

		if req.CustomerID != "" {
			params.Customer = stripe.String(req.CustomerID)
		} else {
			params.CustomerEmail = stripe.String(req.CustomerEmail)
		}
		if req.ClientReferenceID != "" {
			params.ClientReferenceID = stripe.String(req.ClientReferenceID)
		}
		if req.TrialDays > 0 {
			params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
				TrialPeriodDays: stripe.Int64(int64(req.TrialDays)),
			}
		}
		return p.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return CheckoutSession{}, mapStripeError("create checkout session", err)
	}

	s := res.(*stripe.CheckoutSession)
	if s.URL == "" {
		return CheckoutSession{}, ErrNoCheckoutURL
	}
	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// GetSubscription retrieves the current subscription snapshot.
func (p *StripeProcessor) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		params := &stripe.SubscriptionParams{}
		params.Context = ctx
		return p.api.Subscriptions.Get(id, params)
	})
	if err != nil {
		return Subscription{}, mapStripeError("retrieve subscription", err)
	}
	return subscriptionFromStripe(res.(*stripe.Subscription)), nil
}

const metadataUserID = "user_id"

func customerFromStripe(c *stripe.Customer) Customer {
	if c == nil {
		return Customer{}
	}
	return Customer{ID: c.ID, Email: c.Email, UserID: c.Metadata[metadataUserID]}
}

func subscriptionFromStripe(s *stripe.Subscription) Subscription {
	if s == nil {
		return Subscription{}
	}
	sub := Subscription{ID: s.ID, Status: Status(s.Status)}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	return sub
}

func isClientError(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != http.StatusTooManyRequests
}

func mapStripeError(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
	}

	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
	}

	switch {
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
	case se.Type == stripe.ErrorTypeInvalidRequest && strings.Contains(se.Param, "price"):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidPrice, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
}
