package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChangeStreamSource pushes collection changes from MongoDB change streams.
// Update events carry the post-write document.
type ChangeStreamSource[R models.Record] struct {
	db     *DB
	buffer int
	log    *logger.Logger
}

func NewChangeStreamSource[R models.Record](db *DB, buffer int) *ChangeStreamSource[R] {
	return &ChangeStreamSource[R]{
		db:     db,
		buffer: buffer,
		log:    logger.MustNamed("change_stream"),
	}
}

type changeDoc[R models.Record] struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID models.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *R                  `bson:"fullDocument"`
	ClusterTime  primitive.Timestamp `bson:"clusterTime"`
}

func (s *ChangeStreamSource[R]) Subscribe(ctx context.Context, sub changefeed.Subscription) (changefeed.Stream[models.ChangeEvent[R]], error) {
	coll := s.db.Database.Collection(sub.Collection)
	pipeline := mongo.Pipeline{{{Key: "$match", Value: changeStreamMatch(sub)}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", sub.Collection, err)
	}

	p, ctx := changefeed.NewPipe[models.ChangeEvent[R]](ctx, s.buffer)
	go func() {
		var streamErr error
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = cs.Close(closeCtx)
			p.Finish(streamErr)
		}()

		for cs.Next(ctx) {
			var doc changeDoc[R]
			if err := cs.Decode(&doc); err != nil {
				s.log.Warnw("decode change event", "collection", sub.Collection, "error", err)
				continue
			}
			ev, ok := toEvent(doc)
			if !ok {
				continue
			}
			if !p.Send(ev) {
				return
			}
		}
		if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) {
			streamErr = err
		}
	}()
	return p, nil
}

func toEvent[R models.Record](doc changeDoc[R]) (models.ChangeEvent[R], bool) {
	op, err := models.ParseOp(doc.OperationType)
	if err != nil {
		return models.ChangeEvent[R]{}, false
	}
	ev := models.ChangeEvent[R]{
		Op:          op,
		ID:          string(doc.DocumentKey.ID),
		ClusterTime: time.Unix(int64(doc.ClusterTime.T), 0).UTC(),
	}
	if op == models.OpDelete {
		return ev, true
	}
	// the document was already gone when the update was looked up
	if doc.FullDocument == nil {
		return ev, false
	}
	ev.Record = *doc.FullDocument
	return ev, true
}

// changeStreamMatch filters writes on fullDocument. Deletes carry only the
// document key, so they always pass; an unknown id is a no-op downstream.
func changeStreamMatch(sub changefeed.Subscription) bson.M {
	var writes bson.A
	for _, op := range []models.Op{models.OpInsert, models.OpUpdate} {
		if !sub.Wants(op) {
			continue
		}
		writes = append(writes, string(op))
		if op == models.OpUpdate {
			writes = append(writes, "replace")
		}
	}

	var branches bson.A
	if len(writes) > 0 {
		w := bson.M{"operationType": bson.M{"$in": writes}}
		if !sub.Filter.IsZero() {
			w = bson.M{"$and": bson.A{w, filterToBSON(sub.Filter, "fullDocument.")}}
		}
		branches = append(branches, w)
	}
	if sub.Wants(models.OpDelete) {
		branches = append(branches, bson.M{"operationType": "delete"})
	}
	if len(branches) == 1 {
		return branches[0].(bson.M)
	}
	return bson.M{"$or": branches}
}
