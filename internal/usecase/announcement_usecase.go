package usecase

import (
	"context"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
)

type AnnounceParams struct {
	Title  string
	Body   string
	Pinned bool
}

type AnnouncementUsecase interface {
	Announce(ctx context.Context, sess session.Session, params AnnounceParams) (*models.Announcement, error)
	DeleteAnnouncement(ctx context.Context, sess session.Session, id models.ObjectID) error
}

type announcementUsecase struct {
	base
	announcements AnnouncementStore
	pub           changefeed.Publisher
}

func NewAnnouncementUsecase(cfg *config.Config, announcements AnnouncementStore, pub changefeed.Publisher) AnnouncementUsecase {
	return &announcementUsecase{
		base:          newBase(cfg),
		announcements: announcements,
		pub:           pub,
	}
}

func (uc *announcementUsecase) Announce(ctx context.Context, sess session.Session, params AnnounceParams) (*models.Announcement, error) {
	const op = "announce"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, fail(op, err)
	}
	title, err := checkText("title", params.Title, true, 200)
	if err != nil {
		return nil, fail(op, err)
	}
	body, err := checkText("body", params.Body, true, models.MaxPostBody)
	if err != nil {
		return nil, fail(op, err)
	}

	a := models.Announcement{
		ID:     models.NewObjectID(),
		Author: sess.Username,
		Title:  title,
		Body:   body,
		Pinned: params.Pinned,
	}
	a.Stamp(uc.now())
	if err := uc.announcements.Insert(ctx, a); err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, a.CollectionName(), models.OpInsert, a.Key(), a)
	return &a, nil
}

func (uc *announcementUsecase) DeleteAnnouncement(ctx context.Context, sess session.Session, id models.ObjectID) error {
	const op = "delete announcement"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return err
	}
	if err := requireAdmin(sess); err != nil {
		return fail(op, err)
	}
	deleted, err := uc.announcements.DeleteByID(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	uc.pub.Publish(ctx, deleted.CollectionName(), models.OpDelete, deleted.Key(), deleted)
	return nil
}
