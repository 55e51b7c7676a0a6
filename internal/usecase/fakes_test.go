package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
)

var (
	alice = session.Session{Username: "alice"}
	bob   = session.Session{Username: "bob"}
	guest = session.Session{Username: "Guest-0001", Guest: true}
	admin = session.Session{Username: "root", Admin: true}
)

func testConfig() *config.Config {
	return &config.Config{Feed: config.FeedConfig{
		MutationTimeout: time.Second,
		MaxImageBytes:   16,
		MaxVoiceLength:  30 * time.Second,
		MaxVoiceBytes:   32,
	}}
}

type entity interface {
	GetObjectID() models.ObjectID
}

// memRepo keeps documents by id.
type memRepo[E entity] struct {
	mu   sync.Mutex
	docs map[models.ObjectID]E
	err  error
}

func newMemRepo[E entity]() *memRepo[E] {
	return &memRepo[E]{docs: map[models.ObjectID]E{}}
}

func (r *memRepo[E]) Insert(_ context.Context, e E) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.docs[e.GetObjectID()]; ok {
		return models.ErrAlreadyExists
	}
	r.docs[e.GetObjectID()] = e
	return nil
}

func (r *memRepo[E]) FindByID(_ context.Context, id models.ObjectID) (*E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &e, nil
}

func (r *memRepo[E]) DeleteByID(_ context.Context, id models.ObjectID) (*E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(r.docs, id)
	return &e, nil
}

func (r *memRepo[E]) update(id models.ObjectID, fn func(*E)) (*E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fn(&e)
	r.docs[id] = e
	return &e, nil
}

func (r *memRepo[E]) all() []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]E, 0, len(r.docs))
	for _, e := range r.docs {
		out = append(out, e)
	}
	return out
}

type fakeMessages struct {
	*memRepo[models.ChatMessage]
}

func (f fakeMessages) ToggleReaction(_ context.Context, id models.ObjectID, emoji, user string) (*models.ChatMessage, error) {
	return f.update(id, func(m *models.ChatMessage) {
		m.Reactions = models.ToggleReaction(m.Reactions, emoji, user)
	})
}

func (f fakeMessages) Authors(context.Context) ([]string, error) {
	var out []string
	for _, m := range f.all() {
		out = append(out, m.Author)
	}
	return out, nil
}

type fakePosts struct {
	*memRepo[models.Post]
}

func (f fakePosts) SetLikeState(_ context.Context, id models.ObjectID, user string, state models.LikeState) (*models.Post, error) {
	return f.update(id, func(p *models.Post) {
		*p = models.ApplyLikeState(*p, user, state)
	})
}

func (f fakePosts) Authors(context.Context) ([]string, error) {
	var out []string
	for _, p := range f.all() {
		out = append(out, p.Author)
	}
	return out, nil
}

type fakeReports struct {
	*memRepo[models.Report]
}

func (f fakeReports) Respond(_ context.Context, id models.ObjectID, response string, status models.ReportStatus) (*models.Report, error) {
	return f.update(id, func(r *models.Report) {
		r.AdminResponse = response
		r.Status = status
	})
}

type fakeNotifications struct {
	*memRepo[models.Notification]
}

func (f fakeNotifications) MarkRead(_ context.Context, id models.ObjectID, user string) (*models.Notification, error) {
	n, err := f.FindByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if n.ToUser != user {
		return nil, models.ErrPermissionDenied
	}
	return f.update(id, func(n *models.Notification) { n.Read = true })
}

func (f fakeNotifications) Accepted(_ context.Context, user string) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.all() {
		if n.Kind == models.NotifyFriendAccepted && (n.FromUser == user || n.ToUser == user) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f fakeNotifications) Counterparts(_ context.Context, user string) ([]string, error) {
	var out []string
	for _, n := range f.all() {
		switch user {
		case n.ToUser:
			out = append(out, n.FromUser)
		case n.FromUser:
			out = append(out, n.ToUser)
		}
	}
	return out, nil
}

type fakeMutes struct {
	mu    sync.Mutex
	muted map[string]bool
	err   error
}

func newFakeMutes() *fakeMutes {
	return &fakeMutes{muted: map[string]bool{}}
}

func (f *fakeMutes) Mute(_ context.Context, username, reason, by string) (*models.MutedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted[username] = true
	return &models.MutedUser{ID: models.NewObjectID(), Username: username, Reason: reason, MutedBy: by}, nil
}

func (f *fakeMutes) Unmute(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.muted[username] {
		return models.ErrNotFound
	}
	delete(f.muted, username)
	return nil
}

func (f *fakeMutes) IsMuted(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.muted[username], nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	uploads map[string][]byte
	removed []string
	err     error
	// failBucket makes uploads to one bucket fail while others succeed.
	failBucket string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploads: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, name, _ string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if bucket == f.failBucket {
		return "", errStore
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	url := "http://blobs/" + bucket + "/" + name
	f.uploads[url] = data
	return url, nil
}

func (f *fakeBlobs) Remove(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, url)
	f.removed = append(f.removed, url)
	return nil
}

type published struct {
	collection string
	op         models.Op
	id         string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, collection string, op models.Op, id string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{collection, op, id})
}

func (f *fakePublisher) ops() []models.Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Op, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.op)
	}
	return out
}

func file(name, contentType string, n int) *Upload {
	return &Upload{
		Name:        name,
		ContentType: contentType,
		Size:        -1,
		Reader:      bytes.NewReader(bytes.Repeat([]byte("x"), n)),
	}
}

var errStore = errors.New("store down")
