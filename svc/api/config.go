package api

// Config holds the HTTP surface settings read from the environment.
type Config struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	WebhookMaxBody     int64    `env:"WEBHOOK_MAX_BODY" envDefault:"1048576"`
}
