package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

type NotificationRepository interface {
	IRepository[models.Notification]
	MarkRead(ctx context.Context, id models.ObjectID, user string) (*models.Notification, error)
	// Accepted returns friend_accepted rows where user is either side.
	Accepted(ctx context.Context, user string) ([]models.Notification, error)
	Counterparts(ctx context.Context, user string) ([]string, error)
}

type notificationRepo struct {
	baseRepo[models.Notification]
}

func NewNotificationRepository(db *DB) NotificationRepository {
	return &notificationRepo{
		baseRepo: newBaseRepo[models.Notification](db.Database),
	}
}

func (r *notificationRepo) MarkRead(ctx context.Context, id models.ObjectID, user string) (*models.Notification, error) {
	n, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ToUser != user {
		return nil, models.ErrPermissionDenied
	}
	return r.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"read":       true,
		"updated_at": time.Now().UTC(),
	}})
}

func (r *notificationRepo) Accepted(ctx context.Context, user string) ([]models.Notification, error) {
	return r.Find(ctx, bson.M{
		"kind": models.NotifyFriendAccepted,
		"$or":  bson.A{bson.M{"from_user": user}, bson.M{"to_user": user}},
	})
}

// Counterparts lists every user that exchanged a notification with user.
func (r *notificationRepo) Counterparts(ctx context.Context, user string) ([]string, error) {
	from, err := r.Distinct(ctx, "from_user", bson.M{"to_user": user})
	if err != nil {
		return nil, fmt.Errorf("senders: %w", err)
	}
	to, err := r.Distinct(ctx, "to_user", bson.M{"from_user": user})
	if err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	return append(from, to...), nil
}
