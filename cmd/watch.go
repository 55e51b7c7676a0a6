package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/kvrp/internal/app"
	"github.com/nguyentranbao-ct/kvrp/internal/live"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var watchOpts struct {
	as     string
	admin  bool
	locale string
	once   bool
	limit  int64
}

var watchCmd = &cobra.Command{
	Use:   "watch <feed>",
	Short: "Print a feed on every change until interrupted",
	Long: `Opens a feed against the configured store and prints its rendered
items as JSON. Feeds: public, dm/<peer>, posts, reports, notifications,
announcements.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch(ctx, args[0])
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchOpts.as, "as", "operator", "username to view the feed as")
	f.BoolVar(&watchOpts.admin, "admin", false, "view with admin rights")
	f.StringVar(&watchOpts.locale, "locale", "en", "locale for timestamps")
	f.BoolVar(&watchOpts.once, "once", false, "print one snapshot and exit")
	f.Int64Var(&watchOpts.limit, "limit", 0, "rows to read with --once, 0 for all")
}

func watch(ctx context.Context, name string) error {
	var catalog *live.Catalog
	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(app.Config()),
		app.Core(),
		fx.Populate(&catalog),
	)
	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()

	sess := session.Session{Username: watchOpts.as, Admin: watchOpts.admin, IssuedAt: time.Now()}
	f := present.NewFormatter(watchOpts.locale, time.Local)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if watchOpts.once {
		frame, err := catalog.Snapshot(ctx, name, sess, f, watchOpts.limit)
		if err != nil {
			return err
		}
		return enc.Encode(frame)
	}

	frames := make(chan live.Frame, 1)
	view, err := catalog.Open(ctx, name, sess, f, func(fr live.Frame) {
		// keep only the newest frame while printing lags behind
		select {
		case <-frames:
		default:
		}
		select {
		case frames <- fr:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer view.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fr := <-frames:
			if err := enc.Encode(fr); err != nil {
				return fmt.Errorf("print frame: %w", err)
			}
		}
	}
}
