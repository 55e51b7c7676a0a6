package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"golang.org/x/sync/errgroup"
)

// FriendUsecase manages friendships, which are stored as notifications.
type FriendUsecase interface {
	SendFriendRequest(ctx context.Context, sess session.Session, to string) (*models.Notification, error)
	AcceptFriendRequest(ctx context.Context, sess session.Session, requestID models.ObjectID) (*models.Notification, error)
	SendChatRequest(ctx context.Context, sess session.Session, to string) (*models.Notification, error)
	MarkRead(ctx context.Context, sess session.Session, id models.ObjectID) (*models.Notification, error)
	ListFriends(ctx context.Context, sess session.Session) ([]string, error)
	SuggestFriends(ctx context.Context, sess session.Session) ([]string, error)
}

type friendUsecase struct {
	base
	notifications NotificationStore
	messages      ChatStore
	posts         PostStore
	pub           changefeed.Publisher
}

func NewFriendUsecase(
	cfg *config.Config,
	notifications NotificationStore,
	messages ChatStore,
	posts PostStore,
	pub changefeed.Publisher,
) FriendUsecase {
	return &friendUsecase{
		base:          newBase(cfg),
		notifications: notifications,
		messages:      messages,
		posts:         posts,
		pub:           pub,
	}
}

func (uc *friendUsecase) SendFriendRequest(ctx context.Context, sess session.Session, to string) (*models.Notification, error) {
	const op = "send friend request"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if err := uc.checkTarget(sess, to, "send friend requests"); err != nil {
		return nil, fail(op, err)
	}
	friends, err := uc.friends(ctx, sess.Username)
	if err != nil {
		return nil, fail(op, err)
	}
	if friends[to] {
		return nil, fail(op, fmt.Errorf("%w: already friends with %s", models.ErrAlreadyExists, to))
	}
	return uc.notify(ctx, op, sess.Username, to, models.NotifyFriendRequest)
}

func (uc *friendUsecase) AcceptFriendRequest(ctx context.Context, sess session.Session, requestID models.ObjectID) (*models.Notification, error) {
	const op = "accept friend request"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}

	req, err := uc.notifications.FindByID(ctx, requestID)
	if err != nil {
		return nil, fail(op, err)
	}
	if req.Kind != models.NotifyFriendRequest {
		return nil, fail(op, fmt.Errorf("%w: not a friend request", models.ErrInvalidArgument))
	}
	if req.ToUser != sess.Username {
		return nil, fail(op, models.ErrPermissionDenied)
	}

	accepted, err := uc.notify(ctx, op, sess.Username, req.FromUser, models.NotifyFriendAccepted)
	if err != nil {
		return nil, err
	}
	if !req.Read {
		if _, err := uc.markRead(ctx, op, req.ID, sess.Username); err != nil {
			return nil, err
		}
	}
	return accepted, nil
}

func (uc *friendUsecase) SendChatRequest(ctx context.Context, sess session.Session, to string) (*models.Notification, error) {
	const op = "send chat request"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if err := uc.checkTarget(sess, to, "send chat requests"); err != nil {
		return nil, fail(op, err)
	}
	return uc.notify(ctx, op, sess.Username, to, models.NotifyChatRequest)
}

func (uc *friendUsecase) MarkRead(ctx context.Context, sess session.Session, id models.ObjectID) (*models.Notification, error) {
	const op = "mark read"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	return uc.markRead(ctx, op, id, sess.Username)
}

func (uc *friendUsecase) ListFriends(ctx context.Context, sess session.Session) ([]string, error) {
	const op = "list friends"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	friends, err := uc.friends(ctx, sess.Username)
	if err != nil {
		return nil, fail(op, err)
	}
	return sortedKeys(friends), nil
}

// SuggestFriends lists users seen in chat, posts and notifications that are
// not already friends.
func (uc *friendUsecase) SuggestFriends(ctx context.Context, sess session.Session) ([]string, error) {
	const op = "suggest friends"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}

	var (
		chatAuthors, postAuthors, counterparts []string
		friends                                map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		chatAuthors, err = uc.messages.Authors(gctx)
		return err
	})
	g.Go(func() (err error) {
		postAuthors, err = uc.posts.Authors(gctx)
		return err
	})
	g.Go(func() (err error) {
		counterparts, err = uc.notifications.Counterparts(gctx, sess.Username)
		return err
	})
	g.Go(func() (err error) {
		friends, err = uc.friends(gctx, sess.Username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fail(op, err)
	}

	out := map[string]bool{}
	for _, list := range [][]string{chatAuthors, postAuthors, counterparts} {
		for _, u := range list {
			if u != "" && u != sess.Username && !friends[u] {
				out[u] = true
			}
		}
	}
	return sortedKeys(out), nil
}

func (uc *friendUsecase) checkTarget(sess session.Session, to, what string) error {
	if err := requireMember(sess, what); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("%w: recipient is required", models.ErrInvalidArgument)
	}
	if to == sess.Username {
		return fmt.Errorf("%w: cannot send to yourself", models.ErrInvalidArgument)
	}
	return nil
}

func (uc *friendUsecase) friends(ctx context.Context, user string) (map[string]bool, error) {
	rows, err := uc.notifications.Accepted(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, n := range rows {
		peer := n.FromUser
		if peer == user {
			peer = n.ToUser
		}
		if peer != "" && peer != user {
			out[peer] = true
		}
	}
	return out, nil
}

func (uc *friendUsecase) notify(ctx context.Context, op, from, to string, kind models.NotificationKind) (*models.Notification, error) {
	n := models.Notification{
		ID:       models.NewObjectID(),
		FromUser: from,
		ToUser:   to,
		Kind:     kind,
	}
	n.Stamp(uc.now())
	if err := uc.notifications.Insert(ctx, n); err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, n.CollectionName(), models.OpInsert, n.Key(), n)
	return &n, nil
}

func (uc *friendUsecase) markRead(ctx context.Context, op string, id models.ObjectID, user string) (*models.Notification, error) {
	n, err := uc.notifications.MarkRead(ctx, id, user)
	if err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, n.CollectionName(), models.OpUpdate, n.Key(), n)
	return n, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
