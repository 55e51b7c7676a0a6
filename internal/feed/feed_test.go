package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatEvent = models.ChangeEvent[models.ChatMessage]

type loaderFunc func(ctx context.Context, q models.Query) ([]models.ChatMessage, error)

func (f loaderFunc) Load(ctx context.Context, q models.Query) ([]models.ChatMessage, error) {
	return f(ctx, q)
}

func staticLoader(msgs ...models.ChatMessage) loaderFunc {
	return func(context.Context, models.Query) ([]models.ChatMessage, error) {
		return msgs, nil
	}
}

type fakeSource struct {
	err  error
	pipe *changefeed.Pipe[chatEvent]
	end  chan error
	sub  changefeed.Subscription
}

func (s *fakeSource) Subscribe(ctx context.Context, sub changefeed.Subscription) (changefeed.Stream[chatEvent], error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sub = sub
	p, ctx := changefeed.NewPipe[chatEvent](ctx, 16)
	s.pipe = p
	s.end = make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
			p.Finish(ctx.Err())
		case err := <-s.end:
			p.Finish(err)
		}
	}()
	return p, nil
}

func chatQuery() models.Query {
	return models.Query{
		Collection: "chat_messages",
		Filter:     models.Eq("channel", models.PublicChannel),
		Sort:       models.Sort{Field: "created_at", Direction: models.Ascending},
	}
}

func newTestFeed(t *testing.T, loader Loader[models.ChatMessage], src changefeed.Source[models.ChatMessage]) (*Feed[models.ChatMessage], chan State[models.ChatMessage]) {
	t.Helper()
	states := make(chan State[models.ChatMessage], 64)
	f, err := New(Config[models.ChatMessage]{
		Name:        "public",
		Query:       chatQuery(),
		Loader:      loader,
		Source:      src,
		LoadTimeout: time.Second,
		Listener: func(s State[models.ChatMessage]) {
			states <- s
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, states
}

func waitFor(t *testing.T, states <-chan State[models.ChatMessage], cond func(State[models.ChatMessage]) bool) State[models.ChatMessage] {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if cond(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
			return State[models.ChatMessage]{}
		}
	}
}

func TestFeedOpenAndStream(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	f, states := newTestFeed(t, staticLoader(msg("1", 0, "hi")), src)
	require.NoError(t, f.Open(t.Context()))

	s := waitFor(t, states, func(s State[models.ChatMessage]) bool { return len(s.Items) == 1 })
	assert.True(t, s.Live)
	assert.Empty(t, s.Notice)
	assert.Equal(t, "chat_messages", src.sub.Collection)

	src.pipe.Send(ins(msg("2", time.Second, "yo")))
	s = waitFor(t, states, func(s State[models.ChatMessage]) bool { return len(s.Items) == 2 })
	assert.Equal(t, []string{"1", "2"}, ids(s.Items))

	src.pipe.Send(del("1"))
	s = waitFor(t, states, func(s State[models.ChatMessage]) bool { return len(s.Items) == 1 })
	assert.Equal(t, []string{"2"}, ids(s.Items))
}

func TestFeedReplaysEventsDuringLoad(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	release := make(chan struct{})
	entered := make(chan struct{})
	loader := loaderFunc(func(ctx context.Context, q models.Query) ([]models.ChatMessage, error) {
		close(entered)
		<-release
		return []models.ChatMessage{msg("1", 0, "hi")}, nil
	})
	f, states := newTestFeed(t, loader, src)

	opened := make(chan error, 1)
	go func() { opened <- f.Open(t.Context()) }()

	<-entered
	// delivered after subscribe but before the snapshot returns
	src.pipe.Send(ins(msg("2", time.Second, "yo")))
	src.pipe.Send(ins(msg("1", 0, "hi")))
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.replay) == 2
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, <-opened)

	s := waitFor(t, states, func(s State[models.ChatMessage]) bool { return len(s.Items) > 0 })
	assert.Equal(t, []string{"1", "2"}, ids(s.Items))
}

func TestFeedSubscriptionFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("realtime down")}
	f, states := newTestFeed(t, staticLoader(msg("1", 0, "hi")), src)
	require.NoError(t, f.Open(t.Context()))

	s := waitFor(t, states, func(State[models.ChatMessage]) bool { return true })
	assert.False(t, s.Live)
	assert.NotEmpty(t, s.Notice)
	assert.Equal(t, []string{"1"}, ids(s.Items))
}

func TestFeedLoadFailureThenRefresh(t *testing.T) {
	t.Parallel()

	fail := true
	loader := loaderFunc(func(context.Context, models.Query) ([]models.ChatMessage, error) {
		if fail {
			return nil, errors.New("network")
		}
		return []models.ChatMessage{msg("1", 0, "hi")}, nil
	})
	src := &fakeSource{}
	f, states := newTestFeed(t, loader, src)

	err := f.Open(t.Context())
	assert.ErrorIs(t, err, &models.Failure{Kind: models.LoadFailure})
	s := waitFor(t, states, func(State[models.ChatMessage]) bool { return true })
	assert.Empty(t, s.Items)
	assert.NotEmpty(t, s.Notice)
	assert.True(t, s.Live)

	fail = false
	require.NoError(t, f.Refresh(t.Context()))
	s = waitFor(t, states, func(State[models.ChatMessage]) bool { return true })
	assert.Equal(t, []string{"1"}, ids(s.Items))
	assert.Empty(t, s.Notice)
}

func TestFeedStreamEnds(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	f, states := newTestFeed(t, staticLoader(), src)
	require.NoError(t, f.Open(t.Context()))
	waitFor(t, states, func(s State[models.ChatMessage]) bool { return s.Live })

	src.end <- errors.New("connection reset")
	s := waitFor(t, states, func(s State[models.ChatMessage]) bool { return !s.Live })
	assert.NotEmpty(t, s.Notice)
}

func TestFeedCloseIsSynchronous(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	calls := make(chan State[models.ChatMessage], 64)
	f, err := New(Config[models.ChatMessage]{
		Query:  chatQuery(),
		Loader: staticLoader(msg("1", 0, "hi")),
		Source: src,
		Listener: func(s State[models.ChatMessage]) {
			calls <- s
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.Open(t.Context()))
	waitFor(t, calls, func(State[models.ChatMessage]) bool { return true })

	require.NoError(t, f.Close())
	assert.False(t, src.pipe.Send(ins(msg("2", time.Second, "late"))))
	assert.Len(t, calls, 0)
	assert.ErrorIs(t, f.Refresh(t.Context()), ErrClosed)
	assert.False(t, f.State().Live)
	assert.NoError(t, f.Close())
}

func TestFeedRequiresLoader(t *testing.T) {
	t.Parallel()

	_, err := New(Config[models.ChatMessage]{Query: chatQuery()})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
