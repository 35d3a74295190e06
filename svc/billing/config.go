package billing

import "time"

// Config holds the billing settings read from the environment.
type Config struct {
	StripeSecretKey         string        `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret     string        `env:"STRIPE_WEBHOOK_SECRET"`
	StripeAPIURL            string        `env:"STRIPE_API_URL"`
	StripeMaxNetworkRetries int64         `env:"STRIPE_MAX_NETWORK_RETRIES" envDefault:"2"`
	WebhookTolerance        time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`

	BreakerFailures uint32        `env:"STRIPE_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"STRIPE_BREAKER_TIMEOUT" envDefault:"30s"`

	TrialDays         int           `env:"TRIAL_DAYS" envDefault:"7"`
	ReconcileAttempts int           `env:"RECONCILE_ATTEMPTS" envDefault:"5"`
	ReconcileBackoff  time.Duration `env:"RECONCILE_BACKOFF" envDefault:"1s"`

	EventLogTTL  time.Duration `env:"EVENT_LOG_TTL" envDefault:"72h"`
	EventLogSize int           `env:"EVENT_LOG_SIZE" envDefault:"10000"`
}
