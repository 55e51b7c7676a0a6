// Package feed keeps a live, ordered copy of one query's result set.
//
// A Feed subscribes to changes first and loads the snapshot second, so no
// change between the two is lost; events received while a load is in
// flight are replayed on top of the snapshot. Every change is applied under
// one mutex and the listener runs while it is held, which makes Close take
// effect immediately. Listeners must not call back into the feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrClosed = errors.New("feed closed")

type Loader[R models.Record] interface {
	Load(ctx context.Context, q models.Query) ([]R, error)
}

type State[R models.Record] struct {
	Items  []R
	Live   bool
	Notice string
}

type Config[R models.Record] struct {
	Name        string
	Query       models.Query
	Loader      Loader[R]
	Source      changefeed.Source[R]
	Listener    func(State[R])
	LoadTimeout time.Duration
}

type Feed[R models.Record] struct {
	cfg     Config[R]
	log     *logger.Logger
	events  *prometheus.CounterVec
	loadDur *prometheus.HistogramVec

	refreshMu sync.Mutex

	mu         sync.Mutex
	rec        *Reconciler[R]
	opened     bool
	closed     bool
	live       bool
	loading    bool
	replay     []models.ChangeEvent[R]
	subNotice  string
	loadNotice string
	stream     changefeed.Stream[models.ChangeEvent[R]]
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New[R models.Record](cfg Config[R]) (*Feed[R], error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("%w: feed %q without loader", models.ErrInvalidArgument, cfg.Name)
	}
	if err := cfg.Query.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Query.Collection
	}
	events, err := util.GetCounterVec("kvrp_feed_events_total", "Change events seen by live feeds.", "feed", "op", "result")
	if err != nil {
		return nil, fmt.Errorf("get counter vec: %w", err)
	}
	loadDur, err := util.GetHistogramVec("kvrp_feed_load_duration_seconds", "feed", "status")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	return &Feed[R]{
		cfg:     cfg,
		log:     logger.MustNamed("feed"),
		events:  events,
		loadDur: loadDur,
		rec:     NewReconciler[R](cfg.Query.Sort.Direction),
	}, nil
}

func (f *Feed[R]) Name() string {
	return f.cfg.Name
}

// Open subscribes, loads the snapshot and starts applying changes. A failed
// subscription leaves the feed serving its snapshot with Live false. A
// failed load is returned, but the feed stays open and can be refreshed.
func (f *Feed[R]) Open(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.opened {
		f.mu.Unlock()
		return fmt.Errorf("feed %s already open", f.cfg.Name)
	}
	f.opened = true
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	if f.cfg.Source != nil {
		stream, err := f.cfg.Source.Subscribe(runCtx, changefeed.Subscription{
			Collection: f.cfg.Query.Collection,
			Filter:     f.cfg.Query.Filter,
		})
		f.mu.Lock()
		if err == nil && f.closed {
			f.mu.Unlock()
			_ = stream.Close()
			return ErrClosed
		}
		if err != nil {
			err = models.NewFailure(models.SubscriptionFailure, "subscribe "+f.cfg.Name, err)
			f.log.Warnw("subscribe failed, serving snapshot only", "feed", f.cfg.Name, "error", err)
			f.subNotice = models.Notice(err)
		} else {
			f.stream = stream
			f.live = true
			// hold events until the snapshot lands
			f.loading = true
			f.wg.Add(1)
			go f.pump(runCtx, stream)
		}
		f.mu.Unlock()
	} else {
		f.subNotice = models.Notice(models.NewFailure(models.SubscriptionFailure, f.cfg.Name, errors.New("no change source")))
	}

	return f.Refresh(runCtx)
}

// Refresh reloads the snapshot. It is the only recovery path after a failure.
func (f *Feed[R]) Refresh(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.loading = true
	f.mu.Unlock()

	start := time.Now()
	loadCtx, cancel := util.NewTimeoutContext(ctx, f.cfg.LoadTimeout)
	recs, err := f.cfg.Loader.Load(loadCtx, f.cfg.Query)
	cancel()
	status := "ok"
	if err != nil {
		status = "error"
	}
	f.loadDur.WithLabelValues(f.cfg.Name, status).Observe(time.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if f.closed {
		f.replay = nil
		return ErrClosed
	}

	if err != nil {
		err = models.NewFailure(models.LoadFailure, "load "+f.cfg.Name, err)
		f.log.Warnw("load failed", "feed", f.cfg.Name, "error", err)
		f.rec.Snapshot(nil)
		f.loadNotice = models.Notice(err)
	} else {
		f.rec.Snapshot(recs)
		f.loadNotice = ""
	}
	for _, ev := range f.replay {
		f.apply(ev)
	}
	f.replay = nil
	f.publish()
	return err
}

// Close stops the feed. No listener call happens after it returns.
func (f *Feed[R]) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.live = false
	cancel, stream := f.cancel, f.stream
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if stream != nil {
		err = stream.Close()
	}
	f.wg.Wait()
	return err
}

func (f *Feed[R]) State() State[R] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state()
}

// Get returns the held record with the given id.
func (f *Feed[R]) Get(id string) (R, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Get(id)
}

func (f *Feed[R]) pump(ctx context.Context, stream changefeed.Stream[models.ChangeEvent[R]]) {
	defer f.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			f.log.Errorw("PANIC RECOVER", "feed", f.cfg.Name, "panic", r)
			f.streamEnded(fmt.Errorf("panic: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				err := stream.Err()
				if err == nil {
					err = errors.New("change stream ended")
				}
				f.streamEnded(err)
				return
			}
			f.handle(ev)
		}
	}
}

func (f *Feed[R]) handle(ev models.ChangeEvent[R]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.loading {
		f.replay = append(f.replay, ev)
		return
	}
	if f.apply(ev) == Applied {
		f.publish()
	}
}

func (f *Feed[R]) apply(ev models.ChangeEvent[R]) Result {
	res := f.rec.Apply(ev)
	f.events.WithLabelValues(f.cfg.Name, string(ev.Op), string(res)).Inc()
	if res != Applied {
		f.log.Debugw("change not applied", "feed", f.cfg.Name, "op", ev.Op, "id", ev.ID, "result", res)
	}
	return res
}

func (f *Feed[R]) streamEnded(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	err = models.NewFailure(models.SubscriptionFailure, "stream "+f.cfg.Name, err)
	f.log.Warnw("live updates stopped", "feed", f.cfg.Name, "error", err)
	f.live = false
	f.subNotice = models.Notice(err)
	f.publish()
}

func (f *Feed[R]) state() State[R] {
	notice := f.loadNotice
	if notice == "" {
		notice = f.subNotice
	}
	return State[R]{
		Items:  f.rec.Items(),
		Live:   f.live,
		Notice: notice,
	}
}

func (f *Feed[R]) publish() {
	if f.cfg.Listener != nil {
		f.cfg.Listener(f.state())
	}
}
