package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
)

type createReportRequest struct {
	Category    string `json:"category" form:"category"`
	Description string `json:"description" form:"description" validate:"required"`
}

type respondReportRequest struct {
	ID       string `param:"id" validate:"required,objectid"`
	Response string `json:"response"`
	Status   string `json:"status" validate:"omitempty,oneof=open closed"`
}

func (h *controller) CreateReport(c echo.Context, req createReportRequest) (present.ReportView, error) {
	files := &uploads{}
	defer files.Close()

	screenshot, err := files.get(c, "screenshot")
	if err != nil {
		return present.ReportView{}, err
	}
	report, err := h.Reports.CreateReport(ctxOf(c), middleware.GetSession(c), usecase.CreateReportParams{
		Category:    req.Category,
		Description: req.Description,
		Screenshot:  screenshot,
	})
	if err != nil {
		return present.ReportView{}, err
	}
	return present.Reports([]models.Report{*report}, formatter(c))[0], nil
}

func (h *controller) RespondReport(c echo.Context, req respondReportRequest) (present.ReportView, error) {
	report, err := h.Reports.RespondReport(ctxOf(c), middleware.GetSession(c),
		models.ObjectID(req.ID), req.Response, models.ReportStatus(req.Status))
	if err != nil {
		return present.ReportView{}, err
	}
	return present.Reports([]models.Report{*report}, formatter(c))[0], nil
}

func (h *controller) DeleteReport(c echo.Context, req idRequest) error {
	return h.Reports.DeleteReport(ctxOf(c), middleware.GetSession(c), models.ObjectID(req.ID))
}
