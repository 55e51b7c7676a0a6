package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/live"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
	"go.uber.org/fx"
)

type SessionManager interface {
	middleware.SessionResolver
	Guest(ctx context.Context, name string) (session.Session, error)
	Register(ctx context.Context, username, password string) (session.Session, error)
	Login(ctx context.Context, username, password string) (session.Session, error)
	Logout(ctx context.Context, token string) error
}

type FeedCatalog interface {
	Open(ctx context.Context, name string, sess session.Session, f present.Formatter, listener func(live.Frame)) (live.View, error)
	Snapshot(ctx context.Context, name string, sess session.Session, f present.Formatter, limit int64) (live.Frame, error)
}

type BlobOpener interface {
	Open(ctx context.Context, bucket, id string) (*mongodb.Blob, error)
}

// Deps is everything the routes need.
type Deps struct {
	fx.In

	Sessions      SessionManager
	Feeds         FeedCatalog
	Blobs         BlobOpener
	Chat          usecase.ChatUsecase
	Posts         usecase.PostUsecase
	Reports       usecase.ReportUsecase
	Friends       usecase.FriendUsecase
	Moderation    usecase.ModerationUsecase
	Announcements usecase.AnnouncementUsecase
}

type controller struct {
	Deps
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "kvrp",
	})
}

// formatter renders for the request's Accept-Language and the tz query
// parameter, defaulting to UTC.
func formatter(c echo.Context) present.Formatter {
	loc := time.UTC
	if tz := c.QueryParam("tz"); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return present.NewFormatter(c.Request().Header.Get("Accept-Language"), loc)
}

func ctxOf(c echo.Context) context.Context {
	return c.Request().Context()
}
