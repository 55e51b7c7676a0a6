package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
)

type muteRequest struct {
	Username string `json:"username" validate:"required,username"`
	Reason   string `json:"reason"`
}

type unmuteRequest struct {
	Username string `param:"username" validate:"required,username"`
}

type announceRequest struct {
	Title  string `json:"title" validate:"required"`
	Body   string `json:"body" validate:"required"`
	Pinned bool   `json:"pinned"`
}

func (h *controller) Mute(c echo.Context, req muteRequest) (*models.MutedUser, error) {
	return h.Moderation.Mute(ctxOf(c), middleware.GetSession(c), req.Username, req.Reason)
}

func (h *controller) Unmute(c echo.Context, req unmuteRequest) error {
	return h.Moderation.Unmute(ctxOf(c), middleware.GetSession(c), req.Username)
}

func (h *controller) Announce(c echo.Context, req announceRequest) (present.AnnouncementView, error) {
	a, err := h.Announcements.Announce(ctxOf(c), middleware.GetSession(c), usecase.AnnounceParams{
		Title:  req.Title,
		Body:   req.Body,
		Pinned: req.Pinned,
	})
	if err != nil {
		return present.AnnouncementView{}, err
	}
	return present.Announcements([]models.Announcement{*a}, formatter(c))[0], nil
}

func (h *controller) DeleteAnnouncement(c echo.Context, req idRequest) error {
	return h.Announcements.DeleteAnnouncement(ctxOf(c), middleware.GetSession(c), models.ObjectID(req.ID))
}
