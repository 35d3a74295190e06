package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/subsync/pkg/retry"
)

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	Success    bool
	StatusCode int
	Attempt    int
	Duration   time.Duration
	Error      error
}

// DeliveryHook is called after each delivery attempt.
type DeliveryHook func(result DeliveryResult)

type sendOptions struct {
	timeout    time.Duration
	headers    map[string]string
	secret     string
	attempts   int
	strategy   retry.Strategy
	clock      clockwork.Clock
	onDelivery DeliveryHook
}

// SendOption configures a single Send call.
type SendOption func(*sendOptions)

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) SendOption {
	return func(o *sendOptions) { o.headers[key] = value }
}

// WithSecret signs the payload with a Stripe-Signature header.
func WithSecret(secret string) SendOption {
	return func(o *sendOptions) { o.secret = secret }
}

// WithAttempts sets the total number of delivery attempts.
func WithAttempts(n int) SendOption {
	return func(o *sendOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBackoff sets the delay strategy between attempts.
func WithBackoff(s retry.Strategy) SendOption {
	return func(o *sendOptions) {
		if s != nil {
			o.strategy = s
		}
	}
}

// WithSendClock replaces the clock used for signing and backoff.
func WithSendClock(c clockwork.Clock) SendOption {
	return func(o *sendOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithOnDelivery registers a hook called after each attempt.
func WithOnDelivery(hook DeliveryHook) SendOption {
	return func(o *sendOptions) { o.onDelivery = hook }
}

// Sender posts signed raw payloads to a webhook receiver. It is used to
// replay processor events against a deployment.
type Sender struct {
	client *http.Client
}

// NewSender creates a Sender. A nil client uses a pooled default.
func NewSender(client *http.Client) *Sender {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Sender{client: client}
}

// Send delivers payload to target. 4xx responses other than 408, 425 and 429
// stop the retry loop; everything else is retried.
func (s *Sender) Send(ctx context.Context, target string, payload []byte, opts ...SendOption) error {
	if err := validate(target, payload); err != nil {
		return err
	}

	o := &sendOptions{
		timeout:  10 * time.Second,
		headers:  make(map[string]string),
		attempts: 3,
		strategy: retry.Default(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		result, err := s.attempt(ctx, target, payload, o)
		result.Attempt = attempt
		if o.onDelivery != nil {
			o.onDelivery(result)
		}
		if err != nil && isPermanent(result.StatusCode) {
			return retry.Permanent(fmt.Errorf("%w: %w", ErrPermanentFailure, err))
		}
		return err
	},
		retry.WithAttempts(o.attempts),
		retry.WithStrategy(o.strategy),
		retry.WithClock(o.clock),
	)
	if err != nil && errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return err
}

func validate(target string, payload []byte) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	return nil
}

func (s *Sender) attempt(ctx context.Context, target string, payload []byte, o *sendOptions) (DeliveryResult, error) {
	start := o.clock.Now()
	var result DeliveryResult

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		result.Error = err
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "subsync-webhook/1.0")
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	if o.secret != "" {
		req.Header.Set(HeaderName, Sign(o.secret, payload, o.clock.Now()))
	}

	resp, err := s.client.Do(req)
	result.Duration = o.clock.Since(start)
	if err != nil {
		result.Error = err
		return result, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if result.Success {
		return result, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := fmt.Sprintf("receiver returned status %d", resp.StatusCode)
	if len(body) > 0 {
		b := strings.ReplaceAll(string(body), "\n", " ")
		if len(b) > 200 {
			b = b[:200] + "..."
		}
		msg += ": " + b
	}
	result.Error = errors.New(msg)
	return result, result.Error
}

func isPermanent(statusCode int) bool {
	if statusCode < 400 || statusCode >= 500 {
		return false
	}
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
