package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
)

const XRequestID = "X-Request-Id"

type requestIDKey struct{}

func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(XRequestID).(string); ok {
		return id
	}
	return RequestIDFromContext(c.Request().Context())
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// InjectRequestID stores id on the echo and request contexts, and adds it
// to every log line written through logctx.
func InjectRequestID(c echo.Context, id string) {
	ctx := context.WithValue(c.Request().Context(), requestIDKey{}, id)
	ctx = logctx.With(ctx, "request_id", id)
	c.SetRequest(c.Request().WithContext(ctx))
	c.Set(XRequestID, id)
}

type RequestIDConfig struct {
	Skipper      Skipper
	GenerateFunc func() string
}

var DefaultRequestIDConfig = RequestIDConfig{
	Skipper:      DefaultSkipper,
	GenerateFunc: uuid.NewString,
}

func RequestID() echo.MiddlewareFunc {
	return RequestIDWithConfig(DefaultRequestIDConfig)
}

func RequestIDWithConfig(config RequestIDConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultRequestIDConfig.Skipper
	}
	if config.GenerateFunc == nil {
		config.GenerateFunc = DefaultRequestIDConfig.GenerateFunc
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			id := c.Request().Header.Get(XRequestID)
			if id == "" || len(id) > 128 {
				id = config.GenerateFunc()
			}
			InjectRequestID(c, id)
			c.Response().Header().Set(XRequestID, id)
			return next(c)
		}
	}
}
