package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/pkg/httpserver"
	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/pkg/webhook"
	"github.com/dmitrymomot/subsync/svc/api"
	"github.com/dmitrymomot/subsync/svc/billing"
)

const (
	jwtSecret = "jwt-secret"
	whsec     = "whsec_api"
)

type stubProcessor struct {
	mu           sync.Mutex
	checkoutErr  error
	lastCheckout billing.CheckoutRequest
	created      int
}

func (p *stubProcessor) FindCustomersByEmail(context.Context, string) ([]billing.Customer, error) {
	return nil, nil
}

func (p *stubProcessor) CreateCustomer(_ context.Context, email, userID string) (billing.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	return billing.Customer{ID: "cus_new", Email: email, UserID: userID}, nil
}

func (p *stubProcessor) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastCheckout = req
	if p.checkoutErr != nil {
		return billing.CheckoutSession{}, p.checkoutErr
	}
	return billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

func (p *stubProcessor) GetSubscription(_ context.Context, id string) (billing.Subscription, error) {
	return billing.Subscription{ID: id, CustomerID: "cus_1", Status: billing.StatusActive}, nil
}

type fixture struct {
	handler   http.Handler
	store     *billing.MemoryStore
	processor *stubProcessor
	tokens    *jwt.Service
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()

	store := billing.NewMemoryStore(
		billing.Profile{ID: "user-1", Email: "ada@example.com", StripeCustomerID: "cus_1"},
		billing.Profile{ID: "user-2", Email: "bob@example.com"},
	)
	proc := &stubProcessor{}
	svc := billing.NewService(billing.Config{
		StripeWebhookSecret: whsec,
		WebhookTolerance:    5 * time.Minute,
		TrialDays:           7,
		ReconcileAttempts:   1,
	}, store, proc, billing.NewMemoryEventLog(100, time.Hour), nil)

	tokens, err := jwt.NewFromString(jwtSecret)
	require.NoError(t, err)

	a := api.New(api.Config{WebhookMaxBody: 4 << 10}, svc, tokens, opts...)
	return &fixture{handler: a.Handle(), store: store, processor: proc, tokens: tokens}
}

func (f *fixture) token(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := f.tokens.Generate(jwt.Claims{
		Email: email,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return token
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func post(path, body string, headers ...string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const validCheckout = `{
	"priceId": "price_1",
	"customerId": "cus_1",
	"successUrl": "https://app.example.com/success",
	"cancelUrl": "https://app.example.com/pricing"
}`

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(post("/create-checkout-session", validCheckout))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", body["checkoutUrl"])
		assert.Equal(t, "cs_1", body["sessionId"])
		assert.Equal(t, 7, f.processor.lastCheckout.TrialDays)
		assert.Empty(t, f.processor.lastCheckout.ClientReferenceID)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("signed in", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(post("/create-checkout-session", validCheckout,
			"Authorization", "Bearer "+f.token(t, "user-1", "ada@example.com")))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", f.processor.lastCheckout.ClientReferenceID)
	})

	t.Run("trial override", func(t *testing.T) {
		f := newFixture(t)
		body := strings.Replace(validCheckout, `"priceId"`, `"trialDays": 0, "priceId"`, 1)
		rec := f.do(post("/create-checkout-session", body))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, f.processor.lastCheckout.TrialDays)
	})

	tests := []struct {
		name   string
		body   string
		header []string
		procEr error
		status int
		code   string
	}{
		{"missing fields", `{"priceId": "price_1"}`, nil, nil, http.StatusBadRequest, "validation_error"},
		{"relative url", strings.Replace(validCheckout, "https://app.example.com/success", "/success", 1), nil, nil, http.StatusBadRequest, "validation_error"},
		{"invalid json", `{"priceId":`, nil, nil, http.StatusBadRequest, "invalid_json"},
		{"bad token", validCheckout, []string{"Authorization", "Bearer nope"}, nil, http.StatusUnauthorized, "unauthorized"},
		{"unknown price", validCheckout, nil, fmt.Errorf("create checkout session: %w", billing.ErrInvalidPrice), http.StatusBadRequest, "invalid_price"},
		{"processor down", validCheckout, nil, billing.ErrUpstreamUnavailable, http.StatusInternalServerError, "upstream_unavailable"},
		{"unexpected", validCheckout, nil, errors.New("boom"), http.StatusInternalServerError, "internal_server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.processor.checkoutErr = tt.procEr
			rec := f.do(post("/create-checkout-session", tt.body, tt.header...))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body["error"], "boom", "internal details must not leak")
		})
	}
}

func TestCreateCheckoutSession_FieldErrors(t *testing.T) {
	f := newFixture(t)
	rec := f.do(post("/create-checkout-session", `{"priceId": "price_1", "successUrl": "/success"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation_error", body["code"])

	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, "fields must be an object")
	assert.Equal(t, []any{"must be an absolute http or https URL"}, fields["successUrl"])
	assert.Equal(t, []any{"is required"}, fields["cancelUrl"])
	assert.Contains(t, fields, "customerId")
	assert.NotContains(t, fields, "priceId")
	assert.Empty(t, f.processor.lastCheckout.PriceID)
}

func TestCreateStripeCustomer(t *testing.T) {
	f := newFixture(t)

	t.Run("requires a token", func(t *testing.T) {
		rec := f.do(post("/create-stripe-customer", ""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decode(t, rec)["code"])
	})

	t.Run("linked profile", func(t *testing.T) {
		rec := f.do(post("/create-stripe-customer", "", "Authorization", "Bearer "+f.token(t, "user-1", "ada@example.com")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cus_1", decode(t, rec)["customerId"])
		assert.Equal(t, 0, f.processor.created)
	})

	t.Run("creates once", func(t *testing.T) {
		token := f.token(t, "user-2", "bob@example.com")
		for range 2 {
			rec := f.do(post("/create-stripe-customer", "", "Authorization", "Bearer "+token))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "cus_new", decode(t, rec)["customerId"])
		}
		assert.Equal(t, 1, f.processor.created)
	})

	t.Run("token without email", func(t *testing.T) {
		rec := f.do(post("/create-stripe-customer", "", "Authorization", "Bearer "+f.token(t, "user-3", "")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_user", decode(t, rec)["code"])
	})
}

func subscriptionEvent(id, customer, status string, created time.Time) string {
	return fmt.Sprintf(`{"id": %q, "object": "event", "type": "customer.subscription.updated", "created": %d,
		"data": {"object": {"id": "sub_1", "object": "subscription", "customer": %q, "status": %q}}}`,
		id, created.Unix(), customer, status)
}

func TestStripeWebhook(t *testing.T) {
	now := time.Now()

	t.Run("applies signed event", func(t *testing.T) {
		f := newFixture(t)
		payload := subscriptionEvent("evt_1", "cus_1", "active", now)
		rec := f.do(post("/stripe-webhook", payload, webhook.HeaderName, webhook.Sign(whsec, []byte(payload), now)))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["received"])
		assert.Equal(t, "applied", body["outcome"])

		p, err := f.store.GetProfile(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, p.SubscriptionStatus)

		rec = f.do(post("/stripe-webhook", payload, webhook.HeaderName, webhook.Sign(whsec, []byte(payload), now)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "duplicate", decode(t, rec)["outcome"])
	})

	t.Run("unhandled type", func(t *testing.T) {
		f := newFixture(t)
		payload := `{"id": "evt_2", "object": "event", "type": "invoice.paid", "created": 1, "data": {"object": {}}}`
		rec := f.do(post("/stripe-webhook", payload, webhook.HeaderName, webhook.Sign(whsec, []byte(payload), now)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["received"])
	})

	t.Run("tampered", func(t *testing.T) {
		f := newFixture(t)
		signed := subscriptionEvent("evt_1", "cus_1", "past_due", now)
		tampered := subscriptionEvent("evt_1", "cus_1", "active", now)
		rec := f.do(post("/stripe-webhook", tampered, webhook.HeaderName, webhook.Sign(whsec, []byte(signed), now)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_signature", decode(t, rec)["code"])
	})

	t.Run("missing signature", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(post("/stripe-webhook", subscriptionEvent("evt_1", "cus_1", "active", now)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("signed garbage", func(t *testing.T) {
		f := newFixture(t)
		payload := `not json`
		rec := f.do(post("/stripe-webhook", payload, webhook.HeaderName, webhook.Sign(whsec, []byte(payload), now)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "malformed_event", decode(t, rec)["code"])
	})

	t.Run("unknown customer asks for redelivery", func(t *testing.T) {
		f := newFixture(t)
		payload := subscriptionEvent("evt_3", "cus_unknown", "active", now)
		rec := f.do(post("/stripe-webhook", payload, webhook.HeaderName, webhook.Sign(whsec, []byte(payload), now)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "profile_not_found", decode(t, rec)["code"])
	})

	t.Run("body too large", func(t *testing.T) {
		f := newFixture(t)
		payload := `{"pad": "` + strings.Repeat("x", 8<<10) + `"}`
		rec := f.do(post("/stripe-webhook", payload, webhook.HeaderName, webhook.Sign(whsec, []byte(payload), now)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestSubscriptionStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.ApplySubscription(context.Background(), billing.SubscriptionUpdate{
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Status:         billing.StatusTrialing,
		EventAt:        time.Now(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/subscription-status", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "user-1", "ada@example.com"))
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "trialing", body["status"])
	assert.Equal(t, "sub_1", body["subscriptionId"])
	assert.Equal(t, "dashboard", body["view"])

	req = httptest.NewRequest(http.MethodGet, "/subscription-status", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "user-2", "bob@example.com"))
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pricing", decode(t, rec)["view"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/create-checkout-session", "/create-stripe-customer", "/stripe-webhook"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			req.Header.Set("Origin", "https://app.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
			rec := f.do(req)

			assert.Less(t, rec.Code, 300)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		})
	}
}

func TestBareOptions(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/create-checkout-session", "/stripe-webhook", "/subscription-status"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			req.Header.Set("Origin", "https://app.example.com")
			rec := f.do(req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, rec.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	down := errors.New("db down")
	f := newFixture(t, api.WithReadinessChecks(httpserver.Check(func(context.Context) error { return down })))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["code"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/stripe-webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
