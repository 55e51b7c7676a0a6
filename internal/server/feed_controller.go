package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/live"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
)

type feedRequest struct {
	Feed  string `param:"feed"`
	Peer  string `param:"peer"`
	Limit int64  `query:"limit" validate:"gte=0,lte=500"`
}

func (r feedRequest) name() string {
	if r.Peer != "" {
		return live.FeedDirect + "/" + r.Peer
	}
	return r.Feed
}

func (h *controller) Snapshot(c echo.Context, req feedRequest) (live.Frame, error) {
	return h.Feeds.Snapshot(ctxOf(c), req.name(), middleware.GetSession(c), formatter(c), req.Limit)
}
