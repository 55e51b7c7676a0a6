package mongodb

import (
	"context"
	"fmt"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

type ChatMessageRepository interface {
	IRepository[models.ChatMessage]
	// ToggleReaction flips user's membership in the emoji set server side.
	ToggleReaction(ctx context.Context, id models.ObjectID, emoji, user string) (*models.ChatMessage, error)
	Authors(ctx context.Context) ([]string, error)
}

type chatMessageRepo struct {
	baseRepo[models.ChatMessage]
}

func NewChatMessageRepository(db *DB) ChatMessageRepository {
	return &chatMessageRepo{
		baseRepo: newBaseRepo[models.ChatMessage](db.Database),
	}
}

func (r *chatMessageRepo) ToggleReaction(ctx context.Context, id models.ObjectID, emoji, user string) (*models.ChatMessage, error) {
	field := "reactions." + emoji
	current := bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}}
	pipeline := bson.A{
		bson.M{"$set": bson.M{
			field: bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{user, current}},
				bson.M{"$setDifference": bson.A{current, bson.A{user}}},
				bson.M{"$setUnion": bson.A{current, bson.A{user}}},
			}},
			"updated_at": "$$NOW",
		}},
	}
	msg, err := r.UpdateByID(ctx, id, pipeline)
	if err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}
	return msg, nil
}

func (r *chatMessageRepo) Authors(ctx context.Context) ([]string, error) {
	return r.Distinct(ctx, "author", bson.M{"channel": models.PublicChannel})
}
