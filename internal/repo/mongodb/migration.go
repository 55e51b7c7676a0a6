package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MigrationStatus tracks the status of database migrations
type MigrationStatus struct {
	ID          string    `bson:"_id"`
	Status      string    `bson:"status"` // "completed", "failed"
	Error       string    `bson:"error,omitempty"`
	CompletedAt time.Time `bson:"completed_at"`
}

type migration struct {
	name string
	run  func(ctx context.Context, db *mongo.Database) error
}

func indexes(coll string, idx ...mongo.IndexModel) func(ctx context.Context, db *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		_, err := db.Collection(coll).Indexes().CreateMany(ctx, idx)
		return err
	}
}

var migrations = []migration{
	{"chat_messages_channel_created", indexes(models.ChatMessage{}.CollectionName(), mongo.IndexModel{
		Keys: bson.D{{Key: "channel", Value: 1}, {Key: "created_at", Value: 1}},
	})},
	{"posts_created", indexes(models.Post{}.CollectionName(), mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})},
	{"reports_author_created", indexes(models.Report{}.CollectionName(), mongo.IndexModel{
		Keys: bson.D{{Key: "author", Value: 1}, {Key: "created_at", Value: -1}},
	})},
	{"notifications_to_from", indexes(models.Notification{}.CollectionName(),
		mongo.IndexModel{Keys: bson.D{{Key: "to_user", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "from_user", Value: 1}, {Key: "to_user", Value: 1}, {Key: "kind", Value: 1}}},
	)},
	{"muted_users_username", indexes(models.MutedUser{}.CollectionName(), mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})},
	{"announcements_created", indexes(models.Announcement{}.CollectionName(), mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})},
}

// Migrate runs every migration not yet recorded as completed.
func Migrate(ctx context.Context, db *DB) error {
	status := db.Database.Collection("migrations")
	for _, m := range migrations {
		var done MigrationStatus
		err := status.FindOne(ctx, bson.M{"_id": m.name, "status": "completed"}).Decode(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("get migration status %s: %w", m.name, err)
		}

		logctx.Infow(ctx, "Running migration", "migration", m.name)
		runErr := m.run(ctx, db.Database)
		record := MigrationStatus{ID: m.name, Status: "completed", CompletedAt: time.Now().UTC()}
		if runErr != nil {
			record.Status = "failed"
			record.Error = runErr.Error()
		}
		if _, err := status.ReplaceOne(ctx, bson.M{"_id": m.name}, record, options.Replace().SetUpsert(true)); err != nil {
			return fmt.Errorf("set migration status %s: %w", m.name, err)
		}
		if runErr != nil {
			return fmt.Errorf("migration %s: %w", m.name, runErr)
		}
	}
	return nil
}
