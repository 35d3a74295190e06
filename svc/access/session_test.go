package access_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/svc/access"
	"github.com/dmitrymomot/subsync/svc/billing"
)

func TestSessionWatcher_OneCallPerTransition(t *testing.T) {
	t.Parallel()

	w := access.NewSessionWatcher()
	var got []*access.Session
	unsubscribe := w.Subscribe(func(s *access.Session) { got = append(got, s) })

	other := session
	other.User.ID = "user-2"

	assert.True(t, w.Set(&session))
	assert.False(t, w.Set(&session), "same session is not a transition")
	s := session
	assert.False(t, w.Set(&s), "equal copy is not a transition")
	assert.True(t, w.Set(&other))
	assert.True(t, w.Set(nil))
	assert.False(t, w.Set(nil))

	require.Len(t, got, 3)
	assert.Equal(t, "user-1", got[0].User.ID)
	assert.Equal(t, "user-2", got[1].User.ID)
	assert.Nil(t, got[2])

	unsubscribe()
	unsubscribe()
	assert.True(t, w.Set(&session))
	assert.Len(t, got, 3, "no calls after unsubscribe")
	assert.Equal(t, 0, w.Len())
}

func TestSessionWatcher_CurrentIsACopy(t *testing.T) {
	t.Parallel()

	w := access.NewSessionWatcher()
	assert.Nil(t, w.Current())

	s := session
	w.Set(&s)
	s.User.ID = "mutated"

	cur := w.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "user-1", cur.User.ID)
}

func TestSessionWatcher_ConcurrentSubscribers(t *testing.T) {
	t.Parallel()

	w := access.NewSessionWatcher()
	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Subscribe(func(*access.Session) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	w.Set(&session)
	assert.Equal(t, 8, calls)
}

func TestSessionFromContext(t *testing.T) {
	t.Parallel()

	tokens, err := jwt.NewFromString("secret")
	require.NoError(t, err)
	token, err := tokens.Generate(jwt.Claims{
		Email: " ada@example.com ",
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	var got access.Session
	h := jwt.Middleware(tokens)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, err = access.SessionFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NoError(t, err)
	assert.Equal(t, access.Session{
		User:        billing.User{ID: "user-1", Email: "ada@example.com"},
		AccessToken: token,
	}, got)

	_, err = access.SessionFromContext(context.Background())
	assert.ErrorIs(t, err, access.ErrUnauthorized)
}
