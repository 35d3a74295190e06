package billing

import (
	"errors"
	"strings"
)

var (
	ErrInvalidUser   = errors.New("user id and email are required")
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidURL    = errors.New("redirect URLs must be absolute http or https URLs")

	ErrInvalidPrice        = errors.New("price is not recognised by the payment processor")
	ErrUpstreamUnavailable = errors.New("payment processor is unavailable")
	ErrUpstream            = errors.New("payment processor request failed")
	ErrMissingAPIKey       = errors.New("payment processor secret key is required")
	ErrNoCheckoutURL       = errors.New("no checkout URL returned from payment processor")

	ErrSignature      = errors.New("webhook signature verification failed")
	ErrMalformedEvent = errors.New("malformed webhook event")

	ErrProfileNotFound       = errors.New("profile not found")
	ErrStaleEvent            = errors.New("a newer subscription event was already applied")
	ErrCustomerAlreadyLinked = errors.New("profile is already linked to another customer")
	ErrStorage               = errors.New("profile storage failure")
)

// FieldError is a single invalid request field, keyed by its wire name.
// Err is ErrMissingFields or ErrInvalidURL.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

// FieldErrors collects every invalid field of a request. It matches each
// contained sentinel through errors.Is.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

func (e FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, f := range e {
		errs = append(errs, f.Err)
	}
	return errs
}
