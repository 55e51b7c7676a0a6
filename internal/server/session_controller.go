package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
)

type guestRequest struct {
	Name string `json:"name" validate:"omitempty,username"`
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,max=72"`
}

type logoutRequest struct {
	Username string `session:"username"`
}

func (h *controller) Guest(c echo.Context, req guestRequest) (session.Session, error) {
	return h.Sessions.Guest(ctxOf(c), req.Name)
}

func (h *controller) Register(c echo.Context, req credentialsRequest) (session.Session, error) {
	return h.Sessions.Register(ctxOf(c), req.Username, req.Password)
}

func (h *controller) Login(c echo.Context, req credentialsRequest) (session.Session, error) {
	return h.Sessions.Login(ctxOf(c), req.Username, req.Password)
}

func (h *controller) Logout(c echo.Context, req logoutRequest) error {
	if err := h.Sessions.Logout(ctxOf(c), middleware.Token(c)); err != nil {
		return err
	}
	logctx.Infow(ctxOf(c), "session closed", "username", req.Username)
	return nil
}
