package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
)

type userRequest struct {
	To string `json:"to" validate:"required,username"`
}

type usersResponse struct {
	Users []string `json:"users"`
}

func (h *controller) notificationView(c echo.Context, n *models.Notification) present.NotificationView {
	return present.Notifications([]models.Notification{*n}, formatter(c))[0]
}

func (h *controller) SendFriendRequest(c echo.Context, req userRequest) (present.NotificationView, error) {
	n, err := h.Friends.SendFriendRequest(ctxOf(c), middleware.GetSession(c), req.To)
	if err != nil {
		return present.NotificationView{}, err
	}
	return h.notificationView(c, n), nil
}

func (h *controller) AcceptFriendRequest(c echo.Context, req idRequest) (present.NotificationView, error) {
	n, err := h.Friends.AcceptFriendRequest(ctxOf(c), middleware.GetSession(c), models.ObjectID(req.ID))
	if err != nil {
		return present.NotificationView{}, err
	}
	return h.notificationView(c, n), nil
}

func (h *controller) SendChatRequest(c echo.Context, req userRequest) (present.NotificationView, error) {
	n, err := h.Friends.SendChatRequest(ctxOf(c), middleware.GetSession(c), req.To)
	if err != nil {
		return present.NotificationView{}, err
	}
	return h.notificationView(c, n), nil
}

func (h *controller) MarkRead(c echo.Context, req idRequest) (present.NotificationView, error) {
	n, err := h.Friends.MarkRead(ctxOf(c), middleware.GetSession(c), models.ObjectID(req.ID))
	if err != nil {
		return present.NotificationView{}, err
	}
	return h.notificationView(c, n), nil
}

func (h *controller) ListFriends(c echo.Context, _ struct{}) (usersResponse, error) {
	users, err := h.Friends.ListFriends(ctxOf(c), middleware.GetSession(c))
	return usersResponse{Users: users}, err
}

func (h *controller) SuggestFriends(c echo.Context, _ struct{}) (usersResponse, error) {
	users, err := h.Friends.SuggestFriends(ctxOf(c), middleware.GetSession(c))
	return usersResponse{Users: users}, err
}
