package usecase

import (
	"context"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

// The mongodb repositories satisfy these.

type ChatStore interface {
	Insert(ctx context.Context, msg models.ChatMessage) error
	FindByID(ctx context.Context, id models.ObjectID) (*models.ChatMessage, error)
	ToggleReaction(ctx context.Context, id models.ObjectID, emoji, user string) (*models.ChatMessage, error)
	DeleteByID(ctx context.Context, id models.ObjectID) (*models.ChatMessage, error)
	Authors(ctx context.Context) ([]string, error)
}

type PostStore interface {
	Insert(ctx context.Context, post models.Post) error
	FindByID(ctx context.Context, id models.ObjectID) (*models.Post, error)
	SetLikeState(ctx context.Context, id models.ObjectID, user string, state models.LikeState) (*models.Post, error)
	DeleteByID(ctx context.Context, id models.ObjectID) (*models.Post, error)
	Authors(ctx context.Context) ([]string, error)
}

type ReportStore interface {
	Insert(ctx context.Context, report models.Report) error
	Respond(ctx context.Context, id models.ObjectID, response string, status models.ReportStatus) (*models.Report, error)
	DeleteByID(ctx context.Context, id models.ObjectID) (*models.Report, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n models.Notification) error
	FindByID(ctx context.Context, id models.ObjectID) (*models.Notification, error)
	MarkRead(ctx context.Context, id models.ObjectID, user string) (*models.Notification, error)
	Accepted(ctx context.Context, user string) ([]models.Notification, error)
	Counterparts(ctx context.Context, user string) ([]string, error)
}

type MuteStore interface {
	Mute(ctx context.Context, username, reason, by string) (*models.MutedUser, error)
	Unmute(ctx context.Context, username string) error
	IsMuted(ctx context.Context, username string) (bool, error)
}

type AnnouncementStore interface {
	Insert(ctx context.Context, a models.Announcement) error
	DeleteByID(ctx context.Context, id models.ObjectID) (*models.Announcement, error)
}
