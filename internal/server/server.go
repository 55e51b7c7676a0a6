package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"go.uber.org/fx"
)

// NewEcho builds the http surface with its middleware chain and routes.
func NewEcho(conf *config.Config, deps Deps, sockets *SocketHandler, origins *regexp.Regexp) *echo.Echo {
	httpLog := logger.MustNamed("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(httpLog)

	e.Use(middleware.RequestID())
	e.Use(middleware.LogRequest(middleware.LogRequestConfig{
		Logger: httpLog,
		Enabled: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri != "/health" && uri != "/metrics"
		},
		RequestBody: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Path(), "/api/v1/sessions")
		},
	}))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logctx.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(middleware.CORS(origins))
	e.Use(middleware.Session(deps.Sessions))
	e.Use(middleware.Metrics())

	h := &controller{Deps: deps}
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:   conf.RateLimit.RPS,
		Burst: conf.RateLimit.Burst,
	})
	registerRoutes(e, h, sockets, limiter.Middleware())
	return e
}

// NewOrigins compiles the allowed CORS and websocket origins.
func NewOrigins(conf *config.Config) (*regexp.Regexp, error) {
	origins, err := regexp.Compile(conf.Server.CORSOrigins)
	if err != nil {
		return nil, fmt.Errorf("compile cors origins: %w", err)
	}
	return origins, nil
}

func registerRoutes(e *echo.Echo, h *controller, sockets *SocketHandler, limit echo.MiddlewareFunc) {
	authed := []echo.MiddlewareFunc{middleware.RequireSession}
	writes := []echo.MiddlewareFunc{middleware.RequireSession, limit}

	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.GET("/blobs/:bucket/:id", h.Blob)

	sessions := api.Group("/sessions", limit)
	sessions.POST("/guest", middleware.Handle(h.Guest))
	sessions.POST("/register", middleware.Handle(h.Register))
	sessions.POST("/login", middleware.Handle(h.Login))
	sessions.DELETE("", middleware.HandleNoData(h.Logout), middleware.RequireSession)

	api.GET("/feeds/dm/:peer", middleware.Handle(h.Snapshot), authed...)
	api.GET("/feeds/dm/:peer/ws", sockets.Serve, authed...)
	api.GET("/feeds/:feed", middleware.Handle(h.Snapshot), authed...)
	api.GET("/feeds/:feed/ws", sockets.Serve, authed...)
	api.GET("/friends", middleware.Handle(h.ListFriends), authed...)
	api.GET("/friends/suggestions", middleware.Handle(h.SuggestFriends), authed...)

	api.POST("/chat/:channel/messages", middleware.Handle(h.SendMessage), writes...)
	api.POST("/chat/messages/:id/reactions", middleware.Handle(h.React), writes...)
	api.DELETE("/chat/messages/:id", middleware.HandleNoData(h.DeleteMessage), writes...)
	api.POST("/posts", middleware.Handle(h.CreatePost), writes...)
	api.PUT("/posts/:id/like", middleware.Handle(h.SetLikeState), writes...)
	api.DELETE("/posts/:id", middleware.HandleNoData(h.DeletePost), writes...)
	api.POST("/reports", middleware.Handle(h.CreateReport), writes...)
	api.POST("/friends/requests", middleware.Handle(h.SendFriendRequest), writes...)
	api.POST("/friends/requests/:id/accept", middleware.Handle(h.AcceptFriendRequest), writes...)
	api.POST("/chat-requests", middleware.Handle(h.SendChatRequest), writes...)
	api.PUT("/notifications/:id/read", middleware.Handle(h.MarkRead), writes...)

	admin := api.Group("/admin", middleware.RequireAdmin, limit)
	admin.PUT("/reports/:id", middleware.Handle(h.RespondReport))
	admin.DELETE("/reports/:id", middleware.HandleNoData(h.DeleteReport))
	admin.POST("/mutes", middleware.Handle(h.Mute))
	admin.DELETE("/mutes/:username", middleware.HandleNoData(h.Unmute))
	admin.POST("/announcements", middleware.Handle(h.Announce))
	admin.DELETE("/announcements/:id", middleware.HandleNoData(h.DeleteAnnouncement))
	middleware.Pprof(admin)
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	e *echo.Echo,
	sockets *SocketHandler,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logctx.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr())
				if err := e.Start(conf.Server.Addr()); !errors.Is(err, http.ErrServerClosed) {
					logctx.Errorw(context.Background(), "HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sockets.Shutdown()
			return e.Shutdown(ctx)
		},
	})
}
