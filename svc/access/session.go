package access

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/svc/billing"
)

// Session is an authenticated user together with the token that proves it.
type Session struct {
	User        billing.User
	AccessToken string
}

// SessionFromContext builds the session from the claims stored by
// jwt.Middleware.
func SessionFromContext(ctx context.Context) (Session, error) {
	claims, ok := jwt.GetClaims(ctx)
	if !ok || claims.Subject == "" {
		return Session{}, ErrUnauthorized
	}
	token, _ := jwt.GetToken(ctx)
	return Session{
		User: billing.User{
			ID:    claims.Subject,
			Email: strings.TrimSpace(claims.Email),
		},
		AccessToken: token,
	}, nil
}

type subscription struct {
	fn     func(*Session)
	active atomic.Bool
}

// SessionWatcher holds the current session and tells subscribers when it
// changes. Each transition is delivered exactly once per subscriber, in
// order; setting an equal session is not a transition. Subscribers must not
// call Set from the callback.
type SessionWatcher struct {
	deliver sync.Mutex

	mu      sync.Mutex
	current *Session
	subs    []*subscription
}

// NewSessionWatcher creates a watcher with no session.
func NewSessionWatcher() *SessionWatcher {
	return &SessionWatcher{}
}

// Current returns a copy of the current session, or nil when signed out.
func (w *SessionWatcher) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneSession(w.current)
}

// Subscribe registers fn for future transitions. The returned function
// removes the subscription and is safe to call more than once.
func (w *SessionWatcher) Subscribe(fn func(*Session)) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, s := range w.subs {
				if s == sub {
					w.subs = append(w.subs[:i], w.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Set replaces the session; nil signs out. It reports whether subscribers
// were notified.
func (w *SessionWatcher) Set(s *Session) bool {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	if sameSession(w.current, s) {
		w.mu.Unlock()
		return false
	}
	w.current = cloneSession(s)
	subs := make([]*subscription, len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(cloneSession(s))
		}
	}
	return true
}

// Len returns the number of active subscriptions.
func (w *SessionWatcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
