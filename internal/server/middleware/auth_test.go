package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/ctxval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, token string) (session.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (session.Session, error) {
	return f(ctx, token)
}

var tokens = resolverFunc(func(_ context.Context, token string) (session.Session, error) {
	switch token {
	case "alice-token":
		return session.Session{Username: "alice"}, nil
	case "root-token":
		return session.Session{Username: "root", Admin: true}, nil
	}
	return session.Session{}, models.ErrUnauthenticated
})

func runAuth(t *testing.T, target, authorization string, mws ...echo.MiddlewareFunc) (session.Session, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	req = req.WithContext(ctxval.Wrap(req.Context()))
	c := e.NewContext(req, httptest.NewRecorder())

	var got session.Session
	h := func(c echo.Context) error {
		got = GetSession(c)
		return nil
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	err := Session(tokens)(h)(c)
	if err == nil && !got.IsZero() {
		user, ok := ctxval.Get(c.Request().Context(), UserKey)
		require.True(t, ok)
		assert.Equal(t, got.Username, user)
	}
	return got, err
}

func TestSession(t *testing.T) {
	sess, err := runAuth(t, "/", "Bearer alice-token")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)

	sess, err = runAuth(t, "/ws?token=root-token", "")
	require.NoError(t, err)
	assert.True(t, sess.Admin)

	sess, err = runAuth(t, "/", "")
	require.NoError(t, err)
	assert.True(t, sess.IsZero())

	_, err = runAuth(t, "/", "Bearer stolen")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = runAuth(t, "/?token=alice-token", "Basic abc")
	require.NoError(t, err, "a non bearer header hides the query token")
}

func TestRequireSessionAndAdmin(t *testing.T) {
	_, err := runAuth(t, "/", "", RequireSession)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = runAuth(t, "/", "Bearer alice-token", RequireSession)
	assert.NoError(t, err)

	_, err = runAuth(t, "/", "Bearer alice-token", RequireAdmin)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = runAuth(t, "/", "", RequireAdmin)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	sess, err := runAuth(t, "/", "Bearer root-token", RequireAdmin)
	require.NoError(t, err)
	assert.Equal(t, "root", sess.Username)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 2, Idle: time.Minute})
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("user:alice"))
	assert.True(t, l.Allow("user:alice"))
	assert.False(t, l.Allow("user:alice"))
	assert.True(t, l.Allow("user:bob"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("user:alice"))

	now = now.Add(2 * time.Minute)
	l.Allow("user:carol")
	l.mu.Lock()
	_, kept := l.entries["user:bob"]
	l.mu.Unlock()
	assert.False(t, kept, "idle buckets are swept")

	unlimited := NewRateLimiter(RateLimitConfig{})
	for range 100 {
		require.True(t, unlimited.Allow("x"))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RPS: 0.001, Burst: 1})
	_, err := runAuth(t, "/", "Bearer alice-token", l.Middleware())
	require.NoError(t, err)
	_, err = runAuth(t, "/", "Bearer alice-token", l.Middleware())
	assert.ErrorIs(t, err, models.ErrRateLimited)
	_, err = runAuth(t, "/", "", l.Middleware())
	assert.NoError(t, err, "anonymous requests are keyed by ip")
}

func TestToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", strings.NewReader(""))
	req.Header.Set(echo.HeaderAuthorization, "Bearer  padded ")
	assert.Equal(t, "padded", Token(e.NewContext(req, httptest.NewRecorder())))
}
