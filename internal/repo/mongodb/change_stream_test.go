package mongodb

import (
	"testing"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestChangeStreamMatch(t *testing.T) {
	t.Parallel()

	got := changeStreamMatch(changefeed.Subscription{
		Collection: "chat_messages",
		Filter:     models.Eq("channel", "public"),
	})
	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}}},
			bson.M{"fullDocument.channel": "public"},
		}},
		bson.M{"operationType": "delete"},
	}}, got)

	got = changeStreamMatch(changefeed.Subscription{Ops: []models.Op{models.OpDelete}})
	assert.Equal(t, bson.M{"operationType": "delete"}, got)

	got = changeStreamMatch(changefeed.Subscription{Ops: []models.Op{models.OpInsert}})
	assert.Equal(t, bson.M{"operationType": bson.M{"$in": bson.A{"insert"}}}, got)
}

func TestToEvent(t *testing.T) {
	t.Parallel()

	id := models.NewObjectID()
	msg := models.ChatMessage{ID: id, Body: "hi"}

	doc := changeDoc[models.ChatMessage]{OperationType: "replace", FullDocument: &msg, ClusterTime: primitive.Timestamp{T: 100}}
	doc.DocumentKey.ID = id
	ev, ok := toEvent(doc)
	assert.True(t, ok)
	assert.Equal(t, models.OpUpdate, ev.Op)
	assert.Equal(t, "hi", ev.Record.Body)
	assert.Equal(t, time.Unix(100, 0).UTC(), ev.ClusterTime)

	doc = changeDoc[models.ChatMessage]{OperationType: "update"}
	_, ok = toEvent(doc)
	assert.False(t, ok, "update without document is skipped")

	doc = changeDoc[models.ChatMessage]{OperationType: "delete"}
	doc.DocumentKey.ID = id
	ev, ok = toEvent(doc)
	assert.True(t, ok)
	assert.Equal(t, id.String(), ev.ID)

	_, ok = toEvent(changeDoc[models.ChatMessage]{OperationType: "drop"})
	assert.False(t, ok)
}
