package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/retry"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollAttempts = 10
)

var errPending = errors.New("subscription not active yet")

// Poller waits for a subscription to become active after checkout. It reads
// the status once per interval and gives up after a fixed number of reads.
type Poller struct {
	source    StatusSource
	session   Session
	interval  time.Duration
	attempts  int
	clock     clockwork.Clock
	onAttempt func(attempt int, r Report, err error)
	log       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the pause between reads.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts sets the number of reads before giving up.
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithPollerClock replaces the real clock.
func WithPollerClock(c clockwork.Clock) PollerOption {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithOnAttempt registers a hook called after every read.
func WithOnAttempt(fn func(attempt int, r Report, err error)) PollerOption {
	return func(p *Poller) { p.onAttempt = fn }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPoller creates a Poller for the session.
func NewPoller(source StatusSource, session Session, opts ...PollerOption) *Poller {
	p := &Poller{
		source:   source,
		session:  session,
		interval: DefaultPollInterval,
		attempts: DefaultPollAttempts,
		clock:    clockwork.NewRealClock(),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reads the status until it grants access, the token is rejected, the
// attempts run out, ctx ends or Stop is called. Exhaustion returns
// ErrNotConfirmed along with the last report read.
func (p *Poller) Run(ctx context.Context) (Report, error) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return Report{}, ErrPollerRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}()

	var (
		last    Report
		readErr error
	)
	err := retry.Do(runCtx, func(ctx context.Context, attempt int) error {
		r, err := p.source.Status(ctx, p.session)
		if p.onAttempt != nil {
			p.onAttempt(attempt, r, err)
		}
		readErr = err
		switch {
		case errors.Is(err, ErrUnauthorized):
			return retry.Permanent(err)
		case err != nil:
			p.log.WarnContext(ctx, "subscription status read failed",
				logger.UserID(p.session.User.ID),
				logger.RetryCount(attempt),
				logger.Error(err),
			)
			return err
		}
		last = r
		if !r.Status.GrantsAccess() {
			return errPending
		}
		return nil
	},
		retry.WithAttempts(p.attempts),
		retry.WithStrategy(retry.Fixed{Interval: p.interval}),
		retry.WithClock(p.clock),
	)

	switch {
	case err == nil:
		return last, nil
	case ctx.Err() != nil:
		return last, ctx.Err()
	case runCtx.Err() != nil:
		return last, ErrPollerStopped
	case errors.Is(err, retry.ErrExhausted):
		p.log.ErrorContext(ctx, "subscription not confirmed after checkout",
			logger.UserID(p.session.User.ID),
			logger.Status(string(last.Status)),
			slog.Int("attempts", p.attempts),
		)
		if readErr != nil {
			return last, fmt.Errorf("%w after %d attempts: %w", ErrNotConfirmed, p.attempts, readErr)
		}
		return last, fmt.Errorf("%w after %d attempts", ErrNotConfirmed, p.attempts)
	default:
		return last, err
	}
}

// Stop ends a running Run. It is a no-op when nothing is running.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
