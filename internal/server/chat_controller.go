package server

import (
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
)

type sendMessageRequest struct {
	// Channel is "public" or the username of the other participant.
	Channel         string `param:"channel" validate:"required"`
	Body            string `json:"body" form:"body"`
	ReplyTo         string `json:"reply_to" form:"reply_to" validate:"omitempty,objectid"`
	VoiceDurationMs int64  `json:"-" form:"voice_duration_ms" validate:"gte=0"`
}

type reactRequest struct {
	ID    string `param:"id" validate:"required,objectid"`
	Emoji string `json:"emoji" validate:"required"`
}

type idRequest struct {
	ID string `param:"id" validate:"required,objectid"`
}

func channelOf(channel, viewer string) string {
	if channel == models.PublicChannel {
		return channel
	}
	return models.DirectChannel(viewer, channel)
}

func (h *controller) SendMessage(c echo.Context, req sendMessageRequest) (present.MessageView, error) {
	sess := middleware.GetSession(c)
	files := &uploads{}
	defer files.Close()

	image, err := files.get(c, "image")
	if err != nil {
		return present.MessageView{}, err
	}
	voice, err := files.voice(c, "voice", req.VoiceDurationMs)
	if err != nil {
		return present.MessageView{}, err
	}
	msg, err := h.Chat.Send(ctxOf(c), sess, usecase.SendParams{
		Channel: channelOf(req.Channel, sess.Username),
		Body:    req.Body,
		ReplyTo: models.ObjectID(req.ReplyTo),
		Image:   image,
		Voice:   voice,
	})
	if err != nil {
		return present.MessageView{}, err
	}
	return messageView(*msg, sess.Username, formatter(c)), nil
}

func (h *controller) React(c echo.Context, req reactRequest) (present.MessageView, error) {
	sess := middleware.GetSession(c)
	msg, err := h.Chat.React(ctxOf(c), sess, models.ObjectID(req.ID), req.Emoji)
	if err != nil {
		return present.MessageView{}, err
	}
	return messageView(*msg, sess.Username, formatter(c)), nil
}

func (h *controller) DeleteMessage(c echo.Context, req idRequest) error {
	return h.Chat.Delete(ctxOf(c), middleware.GetSession(c), models.ObjectID(req.ID))
}

// messageView renders a single message. Its quote, if any, is left out
// since the reply target is not at hand.
func messageView(msg models.ChatMessage, viewer string, f present.Formatter) present.MessageView {
	return present.Messages([]models.ChatMessage{msg}, viewer, f)[0]
}
