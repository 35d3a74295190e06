package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/subsync/pkg/logger"
)

// Gate tracks the view for the current session.
type Gate struct {
	source   StatusSource
	log      *slog.Logger
	onChange func(View)

	mu      sync.Mutex
	session *Session
	view    View
	report  Report
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithOnViewChange registers fn, called whenever the view changes.
func WithOnViewChange(fn func(View)) GateOption {
	return func(g *Gate) { g.onChange = fn }
}

// NewGate creates a Gate with no session.
func NewGate(source StatusSource, opts ...GateOption) *Gate {
	g := &Gate{
		source: source,
		log:    logger.Discard(),
		view:   ViewWelcome,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("gate"))
	return g
}

// View returns the current view.
func (g *Gate) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Report returns the last status read for the current session.
func (g *Gate) Report() Report {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.report
}

// SetSession switches to s and re-reads the status. A nil session routes to
// the welcome screen without a read.
func (g *Gate) SetSession(ctx context.Context, s *Session) (View, error) {
	g.mu.Lock()
	g.session = cloneSession(s)
	g.mu.Unlock()

	if s == nil {
		g.apply(nil, Report{View: ViewWelcome})
		return ViewWelcome, nil
	}
	return g.Refresh(ctx)
}

// Refresh re-reads the status for the current session, for example when
// the page regains focus. On failure the view is left unchanged.
func (g *Gate) Refresh(ctx context.Context) (View, error) {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()

	if s == nil {
		return g.apply(nil, Report{View: ViewWelcome}), nil
	}

	r, err := g.source.Status(ctx, *s)
	if err != nil {
		g.log.WarnContext(ctx, "status refresh failed",
			logger.UserID(s.User.ID),
			logger.Error(err),
		)
		return g.View(), err
	}
	return g.apply(s, r), nil
}

// AwaitCheckout polls until the subscription started by checkout is active
// and routes to the dashboard. When polling gives up the view is unchanged
// and the error wraps ErrNotConfirmed.
func (g *Gate) AwaitCheckout(ctx context.Context, opts ...PollerOption) (View, error) {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()

	if s == nil {
		return ViewWelcome, ErrUnauthorized
	}

	opts = append([]PollerOption{WithPollerLogger(g.log)}, opts...)
	r, err := NewPoller(g.source, *s, opts...).Run(ctx)
	if err != nil {
		return g.View(), err
	}
	return g.apply(s, r), nil
}

// Attach follows the watcher's session from now on, starting with its
// current one. The returned function detaches the gate.
func (g *Gate) Attach(ctx context.Context, w *SessionWatcher) (detach func()) {
	unsubscribe := w.Subscribe(func(s *Session) {
		_, _ = g.SetSession(ctx, s)
	})
	_, _ = g.SetSession(ctx, w.Current())
	return unsubscribe
}

// apply stores r unless the session changed while it was being read.
func (g *Gate) apply(s *Session, r Report) View {
	if s != nil && r.View == "" {
		r.View = DecideView(&s.User, r.Status)
	}

	g.mu.Lock()
	if !sameSession(g.session, s) {
		view := g.view
		g.mu.Unlock()
		return view
	}
	changed := g.view != r.View
	g.view = r.View
	g.report = r
	g.mu.Unlock()

	if changed && g.onChange != nil {
		g.onChange(r.View)
	}
	return r.View
}
