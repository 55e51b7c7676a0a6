package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error {
		id := GetRequestID(c)
		assert.Equal(t, id, RequestIDFromContext(c.Request().Context()))
		assert.Equal(t, []any{"request_id", id}, logctx.Fields(c.Request().Context()))
		return c.String(http.StatusOK, id)
	}

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(XRequestID, "custom-request-id")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequestID()(handler)(c))
		assert.Equal(t, "custom-request-id", rec.Body.String())
		assert.Equal(t, "custom-request-id", rec.Header().Get(XRequestID))
	})

	t.Run("generates uuid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequestID()(handler)(c))
		_, err := uuid.Parse(rec.Body.String())
		assert.NoError(t, err)
		assert.Equal(t, rec.Body.String(), rec.Header().Get(XRequestID))
	})
}
