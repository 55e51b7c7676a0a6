package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/kafka"
	"github.com/nguyentranbao-ct/kvrp/internal/live"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/kvrp/internal/repo/redis"
	"github.com/nguyentranbao-ct/kvrp/internal/server"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
	"go.uber.org/fx"
)

// liveCollections are the collections behind live feeds.
var liveCollections = []string{
	models.ChatMessage{}.CollectionName(),
	models.Post{}.CollectionName(),
	models.Report{}.CollectionName(),
	models.Notification{}.CollectionName(),
	models.Announcement{}.CollectionName(),
}

func newMongoDB(lc fx.Lifecycle, cfg *config.Config) (*mongodb.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := mongodb.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init mongo client: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return mongodb.Migrate(ctx, db)
		},
		OnStop: func(ctx context.Context) error {
			return db.Close(ctx)
		},
	})
	return db, nil
}

type stores struct {
	fx.Out

	Chat          usecase.ChatStore
	Posts         usecase.PostStore
	Reports       usecase.ReportStore
	Notifications usecase.NotificationStore
	Mutes         usecase.MuteStore
	Announcements usecase.AnnouncementStore
	Loaders       live.Loaders
}

func newStores(db *mongodb.DB) stores {
	chat := mongodb.NewChatMessageRepository(db)
	posts := mongodb.NewPostRepository(db)
	reports := mongodb.NewReportRepository(db)
	notifications := mongodb.NewNotificationRepository(db)
	announcements := mongodb.NewAnnouncementRepository(db)
	return stores{
		Chat:          chat,
		Posts:         posts,
		Reports:       reports,
		Notifications: notifications,
		Mutes:         mongodb.NewMutedUserRepository(db),
		Announcements: announcements,
		Loaders: live.Loaders{
			Messages:      chat,
			Posts:         posts,
			Reports:       reports,
			Notifications: notifications,
			Announcements: announcements,
		},
	}
}

type changeFeed struct {
	fx.Out

	Publisher changefeed.Publisher
	Sources   live.Sources
}

// newChangeFeed wires the configured driver. Change streams need no
// publisher since MongoDB pushes every write itself.
func newChangeFeed(lc fx.Lifecycle, cfg *config.Config, db *mongodb.DB) (changeFeed, error) {
	buffer := cfg.ChangeFeed.Buffer
	switch cfg.ChangeFeed.Driver {
	case "kafka":
		bus, err := kafka.NewBus(cfg.Kafka, cfg.ChangeFeed, liveCollections)
		if err != nil {
			return changeFeed{}, err
		}
		lc.Append(fx.Hook{OnStart: bus.Start, OnStop: bus.Stop})
		return busFeed(bus, buffer), nil
	case "redis":
		client := redis.NewClient(cfg.Redis)
		bus := redis.NewBus(client, cfg.ChangeFeed)
		lc.Append(fx.Hook{
			OnStart: bus.Start,
			OnStop: func(ctx context.Context) error {
				err := bus.Stop(ctx)
				if cerr := client.Close(); err == nil {
					err = cerr
				}
				return err
			},
		})
		return busFeed(bus, buffer), nil
	default:
		return changeFeed{
			Publisher: changefeed.NoopPublisher{},
			Sources: live.Sources{
				Messages:      mongodb.NewChangeStreamSource[models.ChatMessage](db, buffer),
				Posts:         mongodb.NewChangeStreamSource[models.Post](db, buffer),
				Reports:       mongodb.NewChangeStreamSource[models.Report](db, buffer),
				Notifications: mongodb.NewChangeStreamSource[models.Notification](db, buffer),
				Announcements: mongodb.NewChangeStreamSource[models.Announcement](db, buffer),
			},
		}, nil
	}
}

func busFeed(bus changefeed.Bus, buffer int) changeFeed {
	return changeFeed{
		Publisher: changefeed.NewBusPublisher(bus),
		Sources: live.Sources{
			Messages:      changefeed.NewBusSource[models.ChatMessage](bus, buffer),
			Posts:         changefeed.NewBusSource[models.Post](bus, buffer),
			Reports:       changefeed.NewBusSource[models.Report](bus, buffer),
			Notifications: changefeed.NewBusSource[models.Notification](bus, buffer),
			Announcements: changefeed.NewBusSource[models.Announcement](bus, buffer),
		},
	}
}

type blobs struct {
	fx.Out

	Uploads usecase.BlobStore
	Opener  server.BlobOpener
}

func newBlobStore(cfg *config.Config, db *mongodb.DB) blobs {
	store := mongodb.NewBlobStore(db, cfg.Server.PublicBaseURL)
	return blobs{Uploads: store, Opener: store}
}

func newSessionStore(lc fx.Lifecycle, cfg *config.Config) (*session.Store, error) {
	store, err := session.Open(cfg.Session.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

type sessions struct {
	fx.Out

	Manager  *session.Manager
	Sessions server.SessionManager
}

func newSessionManager(store *session.Store, cfg *config.Config) sessions {
	m := session.NewManager(store, cfg.Session)
	return sessions{Manager: m, Sessions: m}
}

type catalog struct {
	fx.Out

	Catalog *live.Catalog
	Feeds   server.FeedCatalog
}

func newCatalog(cfg *config.Config, loaders live.Loaders, sources live.Sources) catalog {
	c := live.NewCatalog(cfg, loaders, sources)
	return catalog{Catalog: c, Feeds: c}
}
