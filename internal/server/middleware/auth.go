package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/ctxval"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
)

const sessionKey = "session"

// UserKey carries the resolved username back to LogRequest.
var UserKey = ctxval.NewKey[string]("user")

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (session.Session, error)
}

// Token reads the bearer token, falling back to the token query parameter
// for websocket clients that cannot set headers.
func Token(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.QueryParam("token")
}

// GetSession returns the zero session for anonymous requests.
func GetSession(c echo.Context) session.Session {
	sess, _ := c.Get(sessionKey).(session.Session)
	return sess
}

func SetSession(c echo.Context, sess session.Session) {
	c.Set(sessionKey, sess)
	ctx := c.Request().Context()
	ctxval.Set(ctx, UserKey, sess.Username)
	c.SetRequest(c.Request().WithContext(logctx.With(ctx, "user", sess.Username)))
}

// Session resolves the token when present. Requests without one pass
// through anonymous; invalid tokens are rejected.
func Session(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := Token(c)
			if token == "" {
				return next(c)
			}
			sess, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				return err
			}
			SetSession(c, sess)
			return next(c)
		}
	}
}

func RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if GetSession(c).IsZero() {
			return models.ErrUnauthenticated
		}
		return next(c)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := GetSession(c)
		if sess.IsZero() {
			return models.ErrUnauthenticated
		}
		if !sess.Admin {
			return models.ErrPermissionDenied
		}
		return next(c)
	}
}
