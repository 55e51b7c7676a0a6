package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
)

type createPostRequest struct {
	Title string `json:"title" form:"title" validate:"required"`
	Body  string `json:"body" form:"body"`
}

type likeRequest struct {
	ID    string `param:"id" validate:"required,objectid"`
	State string `json:"state" validate:"likestate"`
}

func (h *controller) CreatePost(c echo.Context, req createPostRequest) (present.PostView, error) {
	sess := middleware.GetSession(c)
	files := &uploads{}
	defer files.Close()

	image, err := files.get(c, "image")
	if err != nil {
		return present.PostView{}, err
	}
	post, err := h.Posts.CreatePost(ctxOf(c), sess, usecase.CreatePostParams{
		Title: req.Title,
		Body:  req.Body,
		Image: image,
	})
	if err != nil {
		return present.PostView{}, err
	}
	return present.Posts([]models.Post{*post}, sess.Username, formatter(c))[0], nil
}

func (h *controller) SetLikeState(c echo.Context, req likeRequest) (present.PostView, error) {
	sess := middleware.GetSession(c)
	state, err := models.ParseLikeState(req.State)
	if err != nil {
		return present.PostView{}, err
	}
	post, err := h.Posts.SetLikeState(ctxOf(c), sess, models.ObjectID(req.ID), state)
	if err != nil {
		return present.PostView{}, err
	}
	return present.Posts([]models.Post{*post}, sess.Username, formatter(c))[0], nil
}

func (h *controller) DeletePost(c echo.Context, req idRequest) error {
	return h.Posts.DeletePost(ctxOf(c), middleware.GetSession(c), models.ObjectID(req.ID))
}
