package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"google.golang.org/grpc/codes"
)

// HTTPStatus maps a grpc code to the status sent to clients.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// NewResponseError builds the error body for err.
func NewResponseError(err error) *ResponseError {
	var re *ResponseError
	if errors.As(err, &re) {
		return re
	}

	resp := &ResponseError{
		Status: http.StatusInternalServerError,
		Err:    err,
	}
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		resp.Status = he.Code
		resp.ErrorMessage = fmt.Sprint(he.Message)
		resp.ErrorCode = http.StatusText(he.Code)
		return resp
	case errors.Is(err, context.DeadlineExceeded):
		resp.Status = http.StatusGatewayTimeout
		resp.ErrorCode = codes.DeadlineExceeded.String()
	case errors.Is(err, context.Canceled):
		resp.Status = 499
		resp.ErrorCode = codes.Canceled.String()
	default:
		code := models.CodeOf(err)
		resp.Status = HTTPStatus(code)
		resp.ErrorCode = code.String()
	}

	if resp.Status < http.StatusInternalServerError {
		resp.ErrorMessage = err.Error()
	}
	var f *models.Failure
	if errors.As(err, &f) {
		resp.Notice = models.Notice(err)
	}
	return resp
}

func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		resp := NewResponseError(err)
		if resp.Status == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			resp.ErrorMessage = "no route matched"
		}
		if resp.Status >= http.StatusInternalServerError {
			resp.ErrorMessage = http.StatusText(resp.Status)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Status)
		} else {
			err = c.JSON(resp.Status, resp)
		}
		if err != nil {
			log.Errorw("could not respond", "code", resp.Status, "response_body", resp)
		}
	}
}
