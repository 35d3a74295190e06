package access

import "time"

// Config holds the auth and polling settings read from the environment.
type Config struct {
	JWTSecret   string `env:"SUPABASE_JWT_SECRET"`
	JWTAudience string `env:"SUPABASE_JWT_AUDIENCE" envDefault:"authenticated"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	PollAttempts int           `env:"POLL_ATTEMPTS" envDefault:"10"`
}
