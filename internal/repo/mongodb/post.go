package mongodb

import (
	"context"
	"fmt"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

type PostRepository interface {
	IRepository[models.Post]
	SetLikeState(ctx context.Context, id models.ObjectID, user string, state models.LikeState) (*models.Post, error)
	Authors(ctx context.Context) ([]string, error)
}

type postRepo struct {
	baseRepo[models.Post]
}

func NewPostRepository(db *DB) PostRepository {
	return &postRepo{
		baseRepo: newBaseRepo[models.Post](db.Database),
	}
}

// likePipeline keeps the user in at most one of the two sets and derives
// both counts from the set sizes in the same write.
func likePipeline(user string, state models.LikeState) bson.A {
	set := func(field string, member bool) bson.M {
		rest := bson.M{"$setDifference": bson.A{bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}}, bson.A{user}}}
		if member {
			return bson.M{"$setUnion": bson.A{rest, bson.A{user}}}
		}
		return rest
	}
	return bson.A{
		bson.M{"$set": bson.M{
			"liked_by":    set("liked_by", state == models.LikeLike),
			"disliked_by": set("disliked_by", state == models.LikeDislike),
			"updated_at":  "$$NOW",
		}},
		bson.M{"$set": bson.M{
			"like_count":    bson.M{"$size": "$liked_by"},
			"dislike_count": bson.M{"$size": "$disliked_by"},
		}},
	}
}

func (r *postRepo) SetLikeState(ctx context.Context, id models.ObjectID, user string, state models.LikeState) (*models.Post, error) {
	post, err := r.UpdateByID(ctx, id, likePipeline(user, state))
	if err != nil {
		return nil, fmt.Errorf("set like state: %w", err)
	}
	return post, nil
}

func (r *postRepo) Authors(ctx context.Context) ([]string, error) {
	return r.Distinct(ctx, "author", bson.M{})
}
