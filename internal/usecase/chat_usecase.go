package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
)

type SendParams struct {
	Channel string
	Body    string
	ReplyTo models.ObjectID
	Image   *Upload
	Voice   *Upload
}

type ChatUsecase interface {
	Send(ctx context.Context, sess session.Session, params SendParams) (*models.ChatMessage, error)
	React(ctx context.Context, sess session.Session, id models.ObjectID, emoji string) (*models.ChatMessage, error)
	Delete(ctx context.Context, sess session.Session, id models.ObjectID) error
}

type chatUsecase struct {
	base
	messages ChatStore
	muted    MuteStore
	uploads  uploader
	pub      changefeed.Publisher
}

func NewChatUsecase(
	cfg *config.Config,
	messages ChatStore,
	muted MuteStore,
	blobs BlobStore,
	pub changefeed.Publisher,
) ChatUsecase {
	return &chatUsecase{
		base:     newBase(cfg),
		messages: messages,
		muted:    muted,
		uploads:  uploader{blobs: blobs, cfg: cfg.Feed},
		pub:      pub,
	}
}

func (uc *chatUsecase) Send(ctx context.Context, sess session.Session, params SendParams) (*models.ChatMessage, error) {
	const op = "send message"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}

	channel := params.Channel
	if channel == "" {
		channel = models.PublicChannel
	}
	if !models.CanRead(channel, sess.Username) {
		return nil, fail(op, fmt.Errorf("%w: not a member of %s", models.ErrPermissionDenied, channel))
	}
	body, err := checkText("message", params.Body, false, models.MaxMessageBody)
	if err != nil {
		return nil, fail(op, err)
	}
	if models.HasMediaToken(body) {
		return nil, fail(op, fmt.Errorf("%w: attach media as files, not [IMAGE:] or [VOICE:] markers", models.ErrInvalidArgument))
	}
	if body == "" && params.Image == nil && params.Voice == nil {
		return nil, fail(op, fmt.Errorf("%w: message is empty", models.ErrInvalidArgument))
	}
	if isMuted(ctx, uc.muted, sess.Username) {
		return nil, fail(op, models.ErrMuted)
	}

	msg := models.ChatMessage{
		ID:      models.NewObjectID(),
		Channel: channel,
		Author:  sess.Username,
		Body:    body,
		ReplyTo: uc.replyTarget(ctx, channel, params.ReplyTo),
	}
	if params.Image != nil {
		att, err := uc.uploads.image(ctx, mongodb.BucketChatImages, params.Image)
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	if params.Voice != nil {
		att, err := uc.uploads.voice(ctx, mongodb.BucketChatVoice, params.Voice)
		if err != nil {
			uc.uploads.discard(ctx, msg.Attachments)
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	msg.Stamp(uc.now())

	if err := uc.messages.Insert(ctx, msg); err != nil {
		uc.uploads.discard(ctx, msg.Attachments)
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, msg.CollectionName(), models.OpInsert, msg.Key(), msg)
	return &msg, nil
}

// replyTarget keeps the reference only when the target exists in channel.
func (uc *chatUsecase) replyTarget(ctx context.Context, channel string, id models.ObjectID) models.ObjectID {
	if id.IsZero() {
		return ""
	}
	target, err := uc.messages.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logctx.Warnw(ctx, "lookup reply target", "reply_to", id, "error", err)
		}
		return ""
	}
	if target.Channel != channel {
		return ""
	}
	return id
}

func (uc *chatUsecase) React(ctx context.Context, sess session.Session, id models.ObjectID, emoji string) (*models.ChatMessage, error) {
	const op = "react"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if err := validEmoji(emoji); err != nil {
		return nil, fail(op, err)
	}

	current, err := uc.messages.FindByID(ctx, id)
	if err != nil {
		return nil, fail(op, err)
	}
	if !models.CanRead(current.Channel, sess.Username) {
		return nil, fail(op, models.ErrPermissionDenied)
	}
	msg, err := uc.messages.ToggleReaction(ctx, id, emoji, sess.Username)
	if err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, msg.CollectionName(), models.OpUpdate, msg.Key(), msg)
	return msg, nil
}

func (uc *chatUsecase) Delete(ctx context.Context, sess session.Session, id models.ObjectID) error {
	const op = "delete message"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return err
	}

	current, err := uc.messages.FindByID(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	if err := canModify(sess, current.Author); err != nil {
		return fail(op, err)
	}
	deleted, err := uc.messages.DeleteByID(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	uc.pub.Publish(ctx, deleted.CollectionName(), models.OpDelete, deleted.Key(), deleted)
	return nil
}

// validEmoji rejects values that cannot be used as a document field name.
func validEmoji(emoji string) error {
	if emoji == "" || len(emoji) > 32 || strings.Contains(emoji, ".") || strings.HasPrefix(emoji, "$") {
		return fmt.Errorf("%w: invalid reaction %q", models.ErrInvalidArgument, emoji)
	}
	return nil
}

// isMuted treats lookup failures as not muted.
func isMuted(ctx context.Context, muted MuteStore, username string) bool {
	ok, err := muted.IsMuted(ctx, username)
	if err != nil {
		logctx.Warnw(ctx, "mute lookup failed, allowing", "username", username, "error", err)
		return false
	}
	return ok
}
