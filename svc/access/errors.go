package access

import "errors"

var (
	ErrUnauthorized  = errors.New("missing or invalid access token")
	ErrNotConfirmed  = errors.New("subscription could not be confirmed, contact support")
	ErrPollerRunning = errors.New("poller is already running")
	ErrPollerStopped = errors.New("poller was stopped")
	ErrStatusAPI     = errors.New("unexpected subscription status response")
)
