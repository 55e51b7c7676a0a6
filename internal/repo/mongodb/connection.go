package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func ClientOptions(cfg config.DatabaseConfig) *options.ClientOptions {
	opts := options.Client().
		SetAppName("kvrp").
		SetHosts(cfg.Hosts).
		SetDirect(cfg.Direct).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second)

	// Only set auth if username is provided
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			AuthSource: cfg.AuthDB,
			Username:   cfg.Username,
			Password:   cfg.Password,
		})
	}
	return opts
}

// NewConnection connects and pings; the caller owns Close.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	client, err := mongo.Connect(ctx, ClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &DB{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}
