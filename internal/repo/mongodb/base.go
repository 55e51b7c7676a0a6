package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// keep the baseRepo implementation in sync with IRepository interface
var _ IRepository[IEntity] = (*baseRepo[IEntity])(nil)

type IEntity interface {
	CollectionName() string
	GetObjectID() models.ObjectID
}

type IRepository[E IEntity] interface {
	Insert(ctx context.Context, entity E) error
	Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]E, error)
	FindByID(ctx context.Context, docID models.ObjectID) (*E, error)
	FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error)
	Load(ctx context.Context, q models.Query) ([]E, error)
	UpdateByID(ctx context.Context, docID models.ObjectID, update any) (*E, error)
	UpsertOne(ctx context.Context, filter bson.M, set bson.M, setOnInsert bson.M) (*E, error)
	DeleteByID(ctx context.Context, docID models.ObjectID) (*E, error)
	DeleteOne(ctx context.Context, filter bson.M) error
	Count(ctx context.Context, filter bson.M, opts ...*options.CountOptions) (int64, error)
	Distinct(ctx context.Context, field string, filter bson.M) ([]string, error)
}

type baseRepo[E IEntity] struct {
	coll *mongo.Collection
}

func newBaseRepo[E IEntity](dbc *mongo.Database) baseRepo[E] {
	var entity E
	return baseRepo[E]{
		coll: dbc.Collection(entity.CollectionName()),
	}
}

// this is a helper function to get the collection, but only for scripting purposes
func (r *baseRepo[E]) GetCollection() *mongo.Collection {
	return r.coll
}

func (r *baseRepo[E]) Insert(ctx context.Context, entity E) error {
	if _, err := r.coll.InsertOne(ctx, entity); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert one: %w", models.ErrAlreadyExists)
		}
		return fmt.Errorf("insert one: %w", err)
	}
	return nil
}

func (r *baseRepo[E]) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]E, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var entities []E
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepo[E]) FindByID(ctx context.Context, docID models.ObjectID) (*E, error) {
	if !docID.Valid() {
		return nil, models.ErrNotFound
	}
	return r.FindOne(ctx, bson.M{"_id": docID})
}

func (r *baseRepo[E]) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error) {
	var entity E
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Load returns every document matching q in its sort order.
func (r *baseRepo[E]) Load(ctx context.Context, q models.Query) ([]E, error) {
	if q.Collection != r.coll.Name() {
		return nil, fmt.Errorf("%w: query for %s on %s", models.ErrInvalidArgument, q.Collection, r.coll.Name())
	}
	entities, err := r.Find(ctx, filterToBSON(q.Filter, ""), findOptions(q))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", q.Collection, err)
	}
	return entities, nil
}

// UpdateByID applies update, which may be an update document or a
// pipeline, and returns the document after the write.
func (r *baseRepo[E]) UpdateByID(ctx context.Context, docID models.ObjectID, update any) (*E, error) {
	if !docID.Valid() {
		return nil, models.ErrNotFound
	}
	opt := options.
		FindOneAndUpdate().
		SetReturnDocument(options.After)

	var updated E
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": docID}, update, opt).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *baseRepo[E]) UpsertOne(ctx context.Context, filter bson.M, set bson.M, setOnInsert bson.M) (*E, error) {
	update := bson.M{"$set": set}
	if setOnInsert != nil {
		update["$setOnInsert"] = setOnInsert
	}
	opt := options.
		FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var updated E
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opt).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteByID removes the document and returns it as it was.
func (r *baseRepo[E]) DeleteByID(ctx context.Context, docID models.ObjectID) (*E, error) {
	if !docID.Valid() {
		return nil, models.ErrNotFound
	}
	var deleted E
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": docID}).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (r *baseRepo[E]) DeleteOne(ctx context.Context, filter bson.M) error {
	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *baseRepo[E]) Count(ctx context.Context, filter bson.M, opts ...*options.CountOptions) (int64, error) {
	return r.coll.CountDocuments(ctx, filter, opts...)
}

func (r *baseRepo[E]) Distinct(ctx context.Context, field string, filter bson.M) ([]string, error) {
	values, err := r.coll.Distinct(ctx, field, filter)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
