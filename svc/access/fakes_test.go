package access_test

import (
	"context"
	"sync"

	"github.com/dmitrymomot/subsync/svc/access"
	"github.com/dmitrymomot/subsync/svc/billing"
)

// scriptedSource returns the next scripted result on every read and repeats
// the last one when the script runs out.
type scriptedSource struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	status billing.Status
	err    error
}

func (s *scriptedSource) Status(_ context.Context, sess access.Session) (access.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	if r.err != nil {
		return access.Report{}, r.err
	}
	return access.Report{Status: r.status, View: access.DecideView(&sess.User, r.status)}, nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type profileFunc func(ctx context.Context, userID string) (billing.Profile, error)

func (f profileFunc) Profile(ctx context.Context, userID string) (billing.Profile, error) {
	return f(ctx, userID)
}

var session = access.Session{
	User:        billing.User{ID: "user-1", Email: "ada@example.com"},
	AccessToken: "token-1",
}
