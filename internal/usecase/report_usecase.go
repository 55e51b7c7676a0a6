package usecase

import (
	"context"
	"fmt"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
)

var reportCategories = map[string]bool{
	"bug":        true,
	"abuse":      true,
	"spam":       true,
	"suggestion": true,
	"other":      true,
}

type CreateReportParams struct {
	Category    string
	Description string
	Screenshot  *Upload
}

// ReportUsecase files reports. Only admins change or remove them.
type ReportUsecase interface {
	CreateReport(ctx context.Context, sess session.Session, params CreateReportParams) (*models.Report, error)
	RespondReport(ctx context.Context, sess session.Session, id models.ObjectID, response string, status models.ReportStatus) (*models.Report, error)
	DeleteReport(ctx context.Context, sess session.Session, id models.ObjectID) error
}

type reportUsecase struct {
	base
	reports ReportStore
	uploads uploader
	pub     changefeed.Publisher
}

func NewReportUsecase(cfg *config.Config, reports ReportStore, blobs BlobStore, pub changefeed.Publisher) ReportUsecase {
	return &reportUsecase{
		base:    newBase(cfg),
		reports: reports,
		uploads: uploader{blobs: blobs, cfg: cfg.Feed},
		pub:     pub,
	}
}

func (uc *reportUsecase) CreateReport(ctx context.Context, sess session.Session, params CreateReportParams) (*models.Report, error) {
	const op = "create report"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}

	category := params.Category
	if category == "" {
		category = "other"
	}
	if !reportCategories[category] {
		return nil, fail(op, fmt.Errorf("%w: unknown category %q", models.ErrInvalidArgument, category))
	}
	desc, err := checkText("description", params.Description, true, models.MaxPostBody)
	if err != nil {
		return nil, fail(op, err)
	}

	report := models.Report{
		ID:          models.NewObjectID(),
		Author:      sess.Username,
		Category:    category,
		Description: desc,
		Status:      models.ReportOpen,
	}
	var uploaded []models.Attachment
	if params.Screenshot != nil {
		att, err := uc.uploads.image(ctx, mongodb.BucketReportScreenshots, params.Screenshot)
		if err != nil {
			return nil, err
		}
		report.ScreenshotURL = att.URL
		uploaded = append(uploaded, att)
	}
	report.Stamp(uc.now())

	if err := uc.reports.Insert(ctx, report); err != nil {
		uc.uploads.discard(ctx, uploaded)
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, report.CollectionName(), models.OpInsert, report.Key(), report)
	return &report, nil
}

func (uc *reportUsecase) RespondReport(ctx context.Context, sess session.Session, id models.ObjectID, response string, status models.ReportStatus) (*models.Report, error) {
	const op = "respond report"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, fail(op, err)
	}
	switch status {
	case models.ReportOpen, models.ReportClosed:
	case "":
		status = models.ReportClosed
	default:
		return nil, fail(op, fmt.Errorf("%w: status %q", models.ErrInvalidArgument, status))
	}
	response, err = checkText("response", response, false, models.MaxPostBody)
	if err != nil {
		return nil, fail(op, err)
	}

	report, err := uc.reports.Respond(ctx, id, response, status)
	if err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, report.CollectionName(), models.OpUpdate, report.Key(), report)
	return report, nil
}

func (uc *reportUsecase) DeleteReport(ctx context.Context, sess session.Session, id models.ObjectID) error {
	const op = "delete report"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return err
	}
	if err := requireAdmin(sess); err != nil {
		return fail(op, err)
	}
	deleted, err := uc.reports.DeleteByID(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	uc.pub.Publish(ctx, deleted.CollectionName(), models.OpDelete, deleted.Key(), deleted)
	return nil
}
