package mongodb

import (
	"context"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

type MutedUserRepository interface {
	IRepository[models.MutedUser]
	Mute(ctx context.Context, username, reason, by string) (*models.MutedUser, error)
	Unmute(ctx context.Context, username string) error
	IsMuted(ctx context.Context, username string) (bool, error)
}

type mutedUserRepo struct {
	baseRepo[models.MutedUser]
}

func NewMutedUserRepository(db *DB) MutedUserRepository {
	return &mutedUserRepo{
		baseRepo: newBaseRepo[models.MutedUser](db.Database),
	}
}

func (r *mutedUserRepo) Mute(ctx context.Context, username, reason, by string) (*models.MutedUser, error) {
	now := time.Now().UTC()
	return r.UpsertOne(ctx,
		bson.M{"username": username},
		bson.M{"reason": reason, "muted_by": by, "updated_at": now},
		bson.M{"_id": models.NewObjectID(), "created_at": now},
	)
}

func (r *mutedUserRepo) Unmute(ctx context.Context, username string) error {
	return r.DeleteOne(ctx, bson.M{"username": username})
}

func (r *mutedUserRepo) IsMuted(ctx context.Context, username string) (bool, error) {
	n, err := r.Count(ctx, bson.M{"username": username})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
