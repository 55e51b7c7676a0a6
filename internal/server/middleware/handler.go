package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handle binds and validates a Req, calls fn and wraps its result in the
// Response envelope.
func Handle[Req any, Res any](fn func(c echo.Context, req Req) (Res, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Req
		if err := BindAndValidate(c, &req); err != nil {
			return err
		}
		data, err := fn(c, req)
		if err != nil {
			return err
		}
		if c.Response().Committed {
			return nil
		}
		if resp, ok := any(data).(*Response); ok {
			return c.JSON(resp.Status, resp)
		}
		return c.JSON(http.StatusOK, &Response{Status: http.StatusOK, Success: true, Data: data})
	}
}

// NoContent is the result of handlers with nothing to return.
type NoContent struct{}

// HandleNoData is Handle for handlers that return only an error.
func HandleNoData[Req any](fn func(c echo.Context, req Req) error) echo.HandlerFunc {
	return Handle(func(c echo.Context, req Req) (*NoContent, error) {
		return nil, fn(c, req)
	})
}
