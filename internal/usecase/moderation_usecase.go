package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
)

type ModerationUsecase interface {
	Mute(ctx context.Context, sess session.Session, username, reason string) (*models.MutedUser, error)
	Unmute(ctx context.Context, sess session.Session, username string) error
	// IsMuted reports false when the lookup fails.
	IsMuted(ctx context.Context, username string) bool
}

type moderationUsecase struct {
	base
	muted MuteStore
	pub   changefeed.Publisher
}

func NewModerationUsecase(cfg *config.Config, muted MuteStore, pub changefeed.Publisher) ModerationUsecase {
	return &moderationUsecase{
		base:  newBase(cfg),
		muted: muted,
		pub:   pub,
	}
}

func (uc *moderationUsecase) Mute(ctx context.Context, sess session.Session, username, reason string) (*models.MutedUser, error) {
	const op = "mute"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, fail(op, err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fail(op, fmt.Errorf("%w: username is required", models.ErrInvalidArgument))
	}
	if username == sess.Username {
		return nil, fail(op, fmt.Errorf("%w: cannot mute yourself", models.ErrInvalidArgument))
	}
	reason, err = checkText("reason", reason, false, models.MaxMessageBody)
	if err != nil {
		return nil, fail(op, err)
	}

	m, err := uc.muted.Mute(ctx, username, reason, sess.Username)
	if err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, m.CollectionName(), models.OpUpdate, m.Key(), m)
	return m, nil
}

func (uc *moderationUsecase) Unmute(ctx context.Context, sess session.Session, username string) error {
	const op = "unmute"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return err
	}
	if err := requireAdmin(sess); err != nil {
		return fail(op, err)
	}
	if err := uc.muted.Unmute(ctx, username); err != nil {
		return fail(op, err)
	}
	return nil
}

func (uc *moderationUsecase) IsMuted(ctx context.Context, username string) bool {
	ctx, cancel := util.NewTimeoutContext(ctx, uc.timeout)
	defer cancel()
	return isMuted(ctx, uc.muted, username)
}
