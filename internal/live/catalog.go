// Package live names the feeds a viewer can open and renders their state
// into frames for clients.
package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/feed"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/present"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
)

const (
	FeedPublic        = "public"
	FeedDirect        = "dm"
	FeedPosts         = "posts"
	FeedReports       = "reports"
	FeedNotifications = "notifications"
	FeedAnnouncements = "announcements"
)

// Frame is what clients receive on every change.
type Frame struct {
	Type   string `json:"type"`
	Feed   string `json:"feed"`
	Items  any    `json:"items"`
	Live   bool   `json:"live"`
	Notice string `json:"notice,omitempty"`
}

type View interface {
	Frame() Frame
	Refresh(ctx context.Context) error
	Close() error
}

type Loaders struct {
	Messages      feed.Loader[models.ChatMessage]
	Posts         feed.Loader[models.Post]
	Reports       feed.Loader[models.Report]
	Notifications feed.Loader[models.Notification]
	Announcements feed.Loader[models.Announcement]
}

// Sources may hold nil entries; those feeds serve snapshots only.
type Sources struct {
	Messages      changefeed.Source[models.ChatMessage]
	Posts         changefeed.Source[models.Post]
	Reports       changefeed.Source[models.Report]
	Notifications changefeed.Source[models.Notification]
	Announcements changefeed.Source[models.Announcement]
}

type Catalog struct {
	loaders     Loaders
	sources     Sources
	loadTimeout time.Duration
}

func NewCatalog(cfg *config.Config, loaders Loaders, sources Sources) *Catalog {
	return &Catalog{
		loaders:     loaders,
		sources:     sources,
		loadTimeout: cfg.Feed.LoadTimeout,
	}
}

// Query returns the query behind the named feed for sess.
func Query(name string, sess session.Session) (string, models.Query, error) {
	if sess.IsZero() {
		return "", models.Query{}, models.ErrUnauthenticated
	}
	kind, arg, _ := strings.Cut(strings.Trim(name, "/"), "/")
	newest := models.Sort{Field: "created_at", Direction: models.Descending}

	switch kind {
	case FeedPublic:
		return kind, models.Query{
			Collection: models.ChatMessage{}.CollectionName(),
			Filter:     models.Eq("channel", models.PublicChannel),
			Sort:       models.Sort{Field: "created_at", Direction: models.Ascending},
		}, nil
	case FeedDirect:
		if arg == "" || arg == sess.Username {
			return "", models.Query{}, fmt.Errorf("%w: direct feed needs a peer", models.ErrInvalidArgument)
		}
		return kind, models.Query{
			Collection: models.ChatMessage{}.CollectionName(),
			Filter:     models.Eq("channel", models.DirectChannel(sess.Username, arg)),
			Sort:       models.Sort{Field: "created_at", Direction: models.Ascending},
		}, nil
	case FeedPosts:
		return kind, models.Query{Collection: models.Post{}.CollectionName(), Sort: newest}, nil
	case FeedReports:
		q := models.Query{Collection: models.Report{}.CollectionName(), Sort: newest}
		if !sess.Admin {
			q.Filter = models.Eq("author", sess.Username)
		}
		return kind, q, nil
	case FeedNotifications:
		return kind, models.Query{
			Collection: models.Notification{}.CollectionName(),
			Filter:     models.Eq("to_user", sess.Username),
			Sort:       newest,
		}, nil
	case FeedAnnouncements:
		return kind, models.Query{Collection: models.Announcement{}.CollectionName(), Sort: newest}, nil
	}
	return "", models.Query{}, fmt.Errorf("%w: unknown feed %q", models.ErrNotFound, name)
}

// Open starts a live view. listener runs on every change until Close.
// A failed first load is reported through the frame notice, not as an error.
func (c *Catalog) Open(ctx context.Context, name string, sess session.Session, f present.Formatter, listener func(Frame)) (View, error) {
	kind, q, err := Query(name, sess)
	if err != nil {
		return nil, err
	}
	viewer := sess.Username
	switch kind {
	case FeedPublic, FeedDirect:
		return open(ctx, c, kind, q, c.loaders.Messages, c.sources.Messages, func(items []models.ChatMessage) any {
			return present.Messages(items, viewer, f)
		}, listener)
	case FeedPosts:
		return open(ctx, c, kind, q, c.loaders.Posts, c.sources.Posts, func(items []models.Post) any {
			return present.Posts(items, viewer, f)
		}, listener)
	case FeedReports:
		return open(ctx, c, kind, q, c.loaders.Reports, c.sources.Reports, func(items []models.Report) any {
			return present.Reports(items, f)
		}, listener)
	case FeedNotifications:
		return open(ctx, c, kind, q, c.loaders.Notifications, c.sources.Notifications, func(items []models.Notification) any {
			return present.Notifications(items, f)
		}, listener)
	default:
		return open(ctx, c, kind, q, c.loaders.Announcements, c.sources.Announcements, func(items []models.Announcement) any {
			return present.Announcements(items, f)
		}, listener)
	}
}

// Snapshot loads the named feed once. limit > 0 caps the rows read.
func (c *Catalog) Snapshot(ctx context.Context, name string, sess session.Session, f present.Formatter, limit int64) (Frame, error) {
	kind, q, err := Query(name, sess)
	if err != nil {
		return Frame{}, err
	}
	q.Limit = limit
	viewer := sess.Username
	switch kind {
	case FeedPublic, FeedDirect:
		return snapshot(ctx, c, kind, q, c.loaders.Messages, func(items []models.ChatMessage) any {
			return present.Messages(items, viewer, f)
		})
	case FeedPosts:
		return snapshot(ctx, c, kind, q, c.loaders.Posts, func(items []models.Post) any {
			return present.Posts(items, viewer, f)
		})
	case FeedReports:
		return snapshot(ctx, c, kind, q, c.loaders.Reports, func(items []models.Report) any {
			return present.Reports(items, f)
		})
	case FeedNotifications:
		return snapshot(ctx, c, kind, q, c.loaders.Notifications, func(items []models.Notification) any {
			return present.Notifications(items, f)
		})
	default:
		return snapshot(ctx, c, kind, q, c.loaders.Announcements, func(items []models.Announcement) any {
			return present.Announcements(items, f)
		})
	}
}

type view[R models.Record] struct {
	kind   string
	feed   *feed.Feed[R]
	render func([]R) any
}

func (v *view[R]) Frame() Frame {
	return frameOf(v.kind, v.feed.State(), v.render)
}

func (v *view[R]) Refresh(ctx context.Context) error {
	return v.feed.Refresh(ctx)
}

func (v *view[R]) Close() error {
	return v.feed.Close()
}

func frameOf[R models.Record](kind string, s feed.State[R], render func([]R) any) Frame {
	return Frame{
		Type:   "state",
		Feed:   kind,
		Items:  render(s.Items),
		Live:   s.Live,
		Notice: s.Notice,
	}
}

func open[R models.Record](
	ctx context.Context,
	c *Catalog,
	kind string,
	q models.Query,
	loader feed.Loader[R],
	source changefeed.Source[R],
	render func([]R) any,
	listener func(Frame),
) (View, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: feed %s has no store", models.ErrNotFound, kind)
	}
	cfg := feed.Config[R]{
		Name:        kind,
		Query:       q,
		Loader:      loader,
		LoadTimeout: c.loadTimeout,
	}
	if source != nil {
		cfg.Source = source
	}
	if listener != nil {
		cfg.Listener = func(s feed.State[R]) {
			listener(frameOf(kind, s, render))
		}
	}
	f, err := feed.New(cfg)
	if err != nil {
		return nil, err
	}
	v := &view[R]{kind: kind, feed: f, render: render}
	if err := f.Open(ctx); err != nil && !errors.Is(err, &models.Failure{Kind: models.LoadFailure}) {
		_ = f.Close()
		return nil, err
	}
	return v, nil
}

func snapshot[R models.Record](
	ctx context.Context,
	c *Catalog,
	kind string,
	q models.Query,
	loader feed.Loader[R],
	render func([]R) any,
) (Frame, error) {
	if loader == nil {
		return Frame{}, fmt.Errorf("%w: feed %s has no store", models.ErrNotFound, kind)
	}
	ctx, cancel := util.NewTimeoutContext(ctx, c.loadTimeout)
	defer cancel()
	items, err := loader.Load(ctx, q)
	if err != nil {
		return Frame{}, models.NewFailure(models.LoadFailure, "load "+kind, err)
	}
	return Frame{Type: "state", Feed: kind, Items: render(items)}, nil
}
