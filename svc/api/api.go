package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/subsync/pkg/handler"
	"github.com/dmitrymomot/subsync/pkg/httpserver"
	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/requestid"
	"github.com/dmitrymomot/subsync/svc/access"
	"github.com/dmitrymomot/subsync/svc/billing"
)

// API serves the billing endpoints.
type API struct {
	cfg          Config
	billing      *billing.Service
	status       access.StatusSource
	tokens       *jwt.Service
	log          *slog.Logger
	checks       []httpserver.Check
	errorHandler handler.ErrorHandler
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithReadinessChecks adds dependency checks to /health/ready.
func WithReadinessChecks(checks ...httpserver.Check) Option {
	return func(a *API) { a.checks = append(a.checks, checks...) }
}

// WithStatusSource replaces the profile-backed status source.
func WithStatusSource(s access.StatusSource) Option {
	return func(a *API) {
		if s != nil {
			a.status = s
		}
	}
}

// New creates the API. Both svc and tokens are required.
func New(cfg Config, svc *billing.Service, tokens *jwt.Service, opts ...Option) *API {
	if svc == nil || tokens == nil {
		panic("api: billing service and token verifier are required")
	}
	if cfg.WebhookMaxBody <= 0 {
		cfg.WebhookMaxBody = 1 << 20
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	a := &API{
		cfg:     cfg,
		billing: svc,
		status:  access.NewProfileSource(svc),
		tokens:  tokens,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("api"))
	a.errorHandler = handler.NewErrorHandler(a.log, MapError)
	return a
}

// Handle builds the router.
func (a *API) Handle() http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature", "X-Request-ID", "apikey", "x-client-info"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(a.fallback(handler.ErrNotFound))
	r.MethodNotAllowed(a.fallback(handler.ErrMethodNotAllowed))
	// Bare OPTIONS (no Access-Control-Request-Method) skips the CORS preflight.
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/health/live", httpserver.HealthCheckHandler(a.log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(a.log, a.checks...))

	r.Post("/create-checkout-session", handler.Wrap(a.createCheckoutSession,
		handler.WithBinders(handler.BindJSON()),
		handler.WithErrorHandler(a.errorHandler),
	))

	r.With(limitBody(a.cfg.WebhookMaxBody)).Post("/stripe-webhook", handler.Wrap(a.stripeWebhook,
		handler.WithBinders(bindWebhook),
		handler.WithErrorHandler(a.errorHandler),
	))

	r.Group(func(r chi.Router) {
		r.Use(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Service:      a.tokens,
			ErrorHandler: a.authError,
		}))

		r.Post("/create-stripe-customer", handler.Wrap(a.createStripeCustomer,
			handler.WithErrorHandler(a.errorHandler),
		))
		r.Get("/subscription-status", handler.Wrap(a.subscriptionStatus,
			handler.WithErrorHandler(a.errorHandler),
		))
	})

	return r
}

func (a *API) authError(w http.ResponseWriter, r *http.Request, err error) {
	a.errorHandler(handler.NewContext(w, r), err)
}

func (a *API) fallback(err handler.HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.errorHandler(handler.NewContext(w, r), err)
	}
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
