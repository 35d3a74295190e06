package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrymomot/subsync/pkg/handler"
	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/webhook"
	"github.com/dmitrymomot/subsync/svc/access"
	"github.com/dmitrymomot/subsync/svc/billing"
)

type checkoutRequest struct {
	PriceID       string `json:"priceId"`
	CustomerID    string `json:"customerId"`
	CustomerEmail string `json:"customerEmail"`
	SuccessURL    string `json:"successUrl"`
	CancelURL     string `json:"cancelUrl"`
	TrialDays     *int   `json:"trialDays,omitempty"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

// createCheckoutSession accepts anonymous callers. A bearer token, when
// present, must be valid and tags the session with the user id.
func (a *API) createCheckoutSession(ctx handler.Context, req checkoutRequest) handler.Response {
	var userID string
	if ctx.Request().Header.Get("Authorization") != "" {
		token, err := jwt.BearerTokenExtractor(ctx.Request())
		if err != nil {
			return handler.Error(err)
		}
		claims, err := a.tokens.Parse(token)
		if err != nil {
			return handler.Error(err)
		}
		userID = claims.Subject
	}

	session, err := a.billing.Checkout.Create(ctx, billing.CheckoutParams{
		PriceID:       req.PriceID,
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		UserID:        userID,
		TrialDays:     req.TrialDays,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(checkoutResponse{CheckoutURL: session.URL, SessionID: session.ID})
}

type customerResponse struct {
	CustomerID string `json:"customerId"`
}

func (a *API) createStripeCustomer(ctx handler.Context, _ struct{}) handler.Response {
	s, err := access.SessionFromContext(ctx)
	if err != nil {
		return handler.Error(err)
	}

	id, err := a.billing.Customers.Resolve(ctx, s.User)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(customerResponse{CustomerID: id})
}

type webhookRequest struct {
	Body      []byte
	Signature string
}

type webhookResponse struct {
	Received bool            `json:"received"`
	EventID  string          `json:"eventId,omitempty"`
	Outcome  billing.Outcome `json:"outcome,omitempty"`
}

// bindWebhook keeps the body byte-for-byte; the signature covers the raw
// payload.
func bindWebhook(r *http.Request, v any) error {
	req, ok := v.(*webhookRequest)
	if !ok {
		return handler.ErrInternalServerError
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return handler.ErrRequestEntityTooLarge.WithMessage("Request body too large")
		}
		return handler.ErrBadRequest.WithMessage("Failed to read request body")
	}

	req.Body = body
	req.Signature = r.Header.Get(webhook.HeaderName)
	return nil
}

func (a *API) stripeWebhook(ctx handler.Context, req webhookRequest) handler.Response {
	ack, err := a.billing.Webhooks.Handle(ctx, req.Body, req.Signature)
	if err != nil {
		return handler.Error(err)
	}

	a.log.DebugContext(ctx, "webhook acknowledged",
		logger.EventID(ack.EventID),
		logger.EventType(string(ack.Type)),
		logger.Status(string(ack.Outcome)),
	)
	return handler.JSON(webhookResponse{Received: true, EventID: ack.EventID, Outcome: ack.Outcome})
}

func (a *API) subscriptionStatus(ctx handler.Context, _ struct{}) handler.Response {
	s, err := access.SessionFromContext(ctx)
	if err != nil {
		return handler.Error(err)
	}

	report, err := a.status.Status(ctx, s)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(report)
}
