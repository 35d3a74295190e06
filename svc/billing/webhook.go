package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/subsync/pkg/logger"
)

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, ev Event) (Outcome, error)

// Ack is the acknowledgement for a delivered event.
type Ack struct {
	EventID string
	Type    EventType
	Outcome Outcome
}

// OutcomeDuplicate marks an event id that was already applied.
const OutcomeDuplicate Outcome = "duplicate"

// WebhookReceiver verifies processor webhooks and dispatches them by type.
type WebhookReceiver struct {
	secret    string
	tolerance time.Duration
	events    EventLog
	log       *slog.Logger

	mu       sync.RWMutex
	handlers map[EventType]EventHandler
}

// NewWebhookReceiver creates a receiver for the endpoint signing secret. An
// empty secret is allowed so the service can start; every delivery is then
// rejected. A tolerance of zero uses the processor library default. A nil
// events log disables duplicate detection.
func NewWebhookReceiver(secret string, tolerance time.Duration, events EventLog, log *slog.Logger) *WebhookReceiver {
	if log == nil {
		log = logger.Discard()
	}
	return &WebhookReceiver{
		secret:    secret,
		tolerance: tolerance,
		events:    events,
		log:       log.With(logger.Component("webhook")),
		handlers:  make(map[EventType]EventHandler),
	}
}

// On registers h for an event type, replacing any previous handler.
func (w *WebhookReceiver) On(t EventType, h EventHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[t] = h
}

// Handle verifies rawBody against sigHeader and dispatches the event.
// rawBody must be the exact bytes received. Unhandled event types are
// acknowledged. Errors wrap ErrSignature, ErrMalformedEvent or whatever the
// handler returned; only the latter should make the processor redeliver.
func (w *WebhookReceiver) Handle(ctx context.Context, rawBody []byte, sigHeader string) (Ack, error) {
	if w.secret == "" {
		return Ack{}, fmt.Errorf("%w: signing secret is not configured", ErrSignature)
	}

	raw, err := stripewebhook.ConstructEventWithOptions(rawBody, sigHeader, w.secret, stripewebhook.ConstructEventOptions{
		Tolerance:                w.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case isSignatureError(err):
		return Ack{}, fmt.Errorf("%w: %w", ErrSignature, err)
	case err != nil:
		return Ack{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	ev, err := decodeEvent(raw)
	if err != nil {
		return Ack{}, err
	}
	ack := Ack{EventID: ev.ID, Type: ev.Type}
	log := w.log.With(logger.EventID(ev.ID), logger.EventType(string(ev.Type)))

	w.mu.RLock()
	h, ok := w.handlers[ev.Type]
	w.mu.RUnlock()
	if !ok {
		log.DebugContext(ctx, "unhandled event type acknowledged")
		ack.Outcome = OutcomeIgnored
		return ack, nil
	}

	if w.events != nil {
		seen, err := w.events.Seen(ctx, ev.ID)
		if err != nil {
			log.WarnContext(ctx, "event log lookup failed", logger.Error(err))
		}
		if seen {
			log.InfoContext(ctx, "duplicate event acknowledged")
			ack.Outcome = OutcomeDuplicate
			return ack, nil
		}
	}

	outcome, err := h(ctx, ev)
	if err != nil {
		return ack, err
	}
	ack.Outcome = outcome

	if w.events != nil {
		if err := w.events.Record(ctx, ev.ID); err != nil {
			log.WarnContext(ctx, "failed to record processed event", logger.Error(err))
		}
	}
	return ack, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, stripewebhook.ErrNotSigned) ||
		errors.Is(err, stripewebhook.ErrInvalidHeader) ||
		errors.Is(err, stripewebhook.ErrNoValidSignature) ||
		errors.Is(err, stripewebhook.ErrTooOld)
}
