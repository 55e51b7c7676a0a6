package app

import (
	"context"
	"fmt"
	"os"

	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/server"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config loads the configuration and installs the process logger.
func Config() *config.Config {
	conf := config.MustLoad()
	if err := logger.Init(conf.Log.Level, conf.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return conf
}

// Core provides the stores, change feed, use cases and live catalog.
func Core() fx.Option {
	return fx.Options(
		fx.Provide(
			newMongoDB,
			newStores,
			newChangeFeed,
			newBlobStore,
			newSessionStore,
			newSessionManager,
			newCatalog,

			usecase.NewChatUsecase,
			usecase.NewPostUsecase,
			usecase.NewReportUsecase,
			usecase.NewFriendUsecase,
			usecase.NewModerationUsecase,
			usecase.NewAnnouncementUsecase,
		),
	)
}

// Invoke builds the server application around funcs.
func Invoke(conf *config.Config, funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	log.Debugw("config loaded", zap.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(conf),
		Core(),
		fx.Provide(
			server.NewOrigins,
			server.NewSocketHandler,
			server.NewEcho,
		),
		fx.Invoke(purgeExpiredSessions),
		fx.Invoke(funcs...),
	)
}

// purgeExpiredSessions drops stale session rows once on start.
func purgeExpiredSessions(lc fx.Lifecycle, sessions *session.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				return fmt.Errorf("purge expired sessions: %w", err)
			}
			logger.MustNamed("app").Infow("purged expired sessions", "count", n)
			return nil
		},
	})
}
