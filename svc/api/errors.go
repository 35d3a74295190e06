package api

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/subsync/pkg/handler"
	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/svc/access"
	"github.com/dmitrymomot/subsync/svc/billing"
)

var (
	errInvalidUser  = handler.NewHTTPError(http.StatusBadRequest, "invalid_user", "User id and email are required")
	errInvalidPrice = handler.NewHTTPError(http.StatusBadRequest, "invalid_price", "Price is not recognised by the payment processor")
	errSignature    = handler.NewHTTPError(http.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	errMalformed    = handler.NewHTTPError(http.StatusBadRequest, "malformed_event", "Malformed webhook event")
	errUnauthorized = handler.ErrUnauthorized.WithMessage("Missing or invalid access token")
	errUnavailable  = handler.NewHTTPError(http.StatusInternalServerError, "upstream_unavailable", "Payment processor is unavailable, try again later")
	errUpstream     = handler.NewHTTPError(http.StatusInternalServerError, "upstream_error", "Payment processor request failed")
	errNotLinked    = handler.NewHTTPError(http.StatusInternalServerError, "profile_not_found", "No profile is linked to the event's customer")
)

// MapError translates billing, access and token errors into HTTP errors.
// Invalid request fields become a handler.ValidationError keyed by field.
// Unknown errors are returned unchanged and render as 500.
func MapError(err error) error {
	var fields billing.FieldErrors
	if errors.As(err, &fields) {
		verr := handler.NewValidationError()
		for _, f := range fields {
			verr.Add(f.Field, f.Message)
		}
		return verr
	}

	switch {
	case errors.Is(err, billing.ErrInvalidUser):
		return errInvalidUser
	case errors.Is(err, billing.ErrInvalidPrice):
		return errInvalidPrice
	case errors.Is(err, billing.ErrSignature):
		return errSignature
	case errors.Is(err, billing.ErrMalformedEvent):
		return errMalformed
	case errors.Is(err, access.ErrUnauthorized),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		return errUnauthorized
	case errors.Is(err, billing.ErrUpstreamUnavailable):
		return errUnavailable
	case errors.Is(err, billing.ErrUpstream):
		return errUpstream
	case errors.Is(err, billing.ErrProfileNotFound):
		return errNotLinked
	default:
		return err
	}
}
