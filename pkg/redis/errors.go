package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis is not configured, set REDIS_URL")
	ErrInvalidURL         = errors.New("invalid redis connection url")
	ErrNotReady           = errors.New("redis did not answer before the connect deadline")
	ErrHealthcheckFailed  = errors.New("redis healthcheck failed")
)
