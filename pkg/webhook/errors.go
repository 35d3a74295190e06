package webhook

import "errors"

// Delivery errors returned by Sender.
var (
	ErrInvalidURL       = errors.New("invalid webhook URL")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrPermanentFailure = errors.New("permanent webhook failure")
	ErrTemporaryFailure = errors.New("temporary webhook failure")
	ErrDeliveryFailed   = errors.New("webhook delivery failed")
)
