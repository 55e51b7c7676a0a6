package usecase

import (
	"context"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
)

type CreatePostParams struct {
	Title string
	Body  string
	Image *Upload
}

type PostUsecase interface {
	CreatePost(ctx context.Context, sess session.Session, params CreatePostParams) (*models.Post, error)
	SetLikeState(ctx context.Context, sess session.Session, id models.ObjectID, state models.LikeState) (*models.Post, error)
	DeletePost(ctx context.Context, sess session.Session, id models.ObjectID) error
}

type postUsecase struct {
	base
	posts   PostStore
	uploads uploader
	pub     changefeed.Publisher
}

func NewPostUsecase(cfg *config.Config, posts PostStore, blobs BlobStore, pub changefeed.Publisher) PostUsecase {
	return &postUsecase{
		base:    newBase(cfg),
		posts:   posts,
		uploads: uploader{blobs: blobs, cfg: cfg.Feed},
		pub:     pub,
	}
}

func (uc *postUsecase) CreatePost(ctx context.Context, sess session.Session, params CreatePostParams) (*models.Post, error) {
	const op = "create post"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}

	title, err := checkText("title", params.Title, true, 200)
	if err != nil {
		return nil, fail(op, err)
	}
	body, err := checkText("body", params.Body, false, models.MaxPostBody)
	if err != nil {
		return nil, fail(op, err)
	}

	post := models.Post{
		ID:         models.NewObjectID(),
		Author:     sess.Username,
		Title:      title,
		Body:       body,
		LikedBy:    []string{},
		DislikedBy: []string{},
	}
	var uploaded []models.Attachment
	if params.Image != nil {
		att, err := uc.uploads.image(ctx, mongodb.BucketPostImages, params.Image)
		if err != nil {
			return nil, err
		}
		post.ImageURL = att.URL
		uploaded = append(uploaded, att)
	}
	post.Stamp(uc.now())

	if err := uc.posts.Insert(ctx, post); err != nil {
		uc.uploads.discard(ctx, uploaded)
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, post.CollectionName(), models.OpInsert, post.Key(), post)
	return &post, nil
}

func (uc *postUsecase) SetLikeState(ctx context.Context, sess session.Session, id models.ObjectID, state models.LikeState) (*models.Post, error) {
	const op = "set like state"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseLikeState(string(state)); err != nil {
		return nil, fail(op, err)
	}

	post, err := uc.posts.SetLikeState(ctx, id, sess.Username, state)
	if err != nil {
		return nil, fail(op, err)
	}
	uc.pub.Publish(ctx, post.CollectionName(), models.OpUpdate, post.Key(), post)
	return post, nil
}

func (uc *postUsecase) DeletePost(ctx context.Context, sess session.Session, id models.ObjectID) error {
	const op = "delete post"
	ctx, cancel, err := uc.begin(ctx, sess, op)
	defer cancel()
	if err != nil {
		return err
	}

	current, err := uc.posts.FindByID(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	if err := canModify(sess, current.Author); err != nil {
		return fail(op, err)
	}
	deleted, err := uc.posts.DeleteByID(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	uc.pub.Publish(ctx, deleted.CollectionName(), models.OpDelete, deleted.Key(), deleted)
	return nil
}
