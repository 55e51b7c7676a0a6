package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type likeRequest struct {
	ID       string `param:"id" validate:"required,objectid"`
	State    string `json:"state" validate:"likestate"`
	Locale   string `header:"Accept-Language"`
	Username string `session:"username"`
	Admin    bool   `session:"admin"`
}

type likeResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
	By    string `json:"by"`
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop().Sugar())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetSession(c, session.Session{Username: "alice", Admin: true})
			return next(c)
		}
	})
	return e
}

func TestHandle(t *testing.T) {
	var got likeRequest
	e := newTestEcho()
	e.PUT("/posts/:id/like", Handle(func(c echo.Context, req likeRequest) (likeResponse, error) {
		got = req
		return likeResponse{ID: req.ID, State: req.State, By: req.Username}, nil
	}))
	e.DELETE("/posts/:id", HandleNoData(func(c echo.Context, req likeRequest) error {
		return models.ErrNotFound
	}))

	id := string(models.NewObjectID())

	t.Run("binds and wraps", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/posts/"+id+"/like", strings.NewReader(`{"state":"like"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("Accept-Language", "vi")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"success":true,"data":{"id":"`+id+`","state":"like","by":"alice"}}`, rec.Body.String())
		assert.Equal(t, "vi", got.Locale)
		assert.True(t, got.Admin)
	})

	t.Run("validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/posts/nope/like", strings.NewReader(`{"state":"love"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/posts/"+id+"/like", strings.NewReader(`{"state":`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/posts/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBindStruct_RejectsNonPointer(t *testing.T) {
	err := bindStruct(likeRequest{}, "header", func(string) (any, error) { return "", nil })
	assert.Error(t, err)
}
