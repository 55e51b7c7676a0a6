package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,24}$`)

const minPasswordLength = 6

type Manager struct {
	store  *Store
	ttl    time.Duration
	admins []string
	cost   int
	now    func() time.Time
}

func NewManager(store *Store, cfg config.SessionConfig) *Manager {
	admins := make([]string, 0, len(cfg.AdminUsernames))
	for _, a := range cfg.AdminUsernames {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			admins = append(admins, a)
		}
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Manager{
		store:  store,
		ttl:    cfg.TTL,
		admins: admins,
		cost:   cost,
		now:    time.Now,
	}
}

func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("%w: username must be 3-24 letters, digits, '-' or '_'", models.ErrInvalidArgument)
	}
	return nil
}

// Guest starts a session without an account. An empty name gets a random
// Guest-XXXX name. Guests may not take a registered name or one held by a
// live session.
func (m *Manager) Guest(ctx context.Context, name string) (Session, error) {
	name = strings.TrimSpace(name)
	chosen := name != ""
	if !chosen {
		generated, err := m.guestName(ctx)
		if err != nil {
			return Session{}, err
		}
		name = generated
	}
	if err := ValidateUsername(name); err != nil {
		return Session{}, err
	}
	exists, err := m.store.AccountExists(ctx, name)
	if err != nil {
		return Session{}, err
	}
	if exists {
		return Session{}, fmt.Errorf("username %s is registered: %w", name, models.ErrAlreadyExists)
	}
	if chosen {
		if err := m.checkNameFree(ctx, name); err != nil {
			return Session{}, err
		}
	}
	return m.issue(ctx, name, true)
}

// checkNameFree fails while any unexpired session holds name.
func (m *Manager) checkNameFree(ctx context.Context, name string) error {
	taken, err := m.store.GuestNameTaken(ctx, name, m.now())
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("username %s is in use: %w", name, models.ErrAlreadyExists)
	}
	return nil
}

func (m *Manager) guestName(ctx context.Context) (string, error) {
	for range 8 {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("random guest name: %w", err)
		}
		name := fmt.Sprintf("Guest-%04d", n.Int64())
		taken, err := m.store.GuestNameTaken(ctx, name, m.now())
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return "Guest-" + uuid.NewString()[:8], nil
}

func (m *Manager) Register(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must have at least %d characters", models.ErrInvalidArgument, minPasswordLength)
	}
	if err := m.checkNameFree(ctx, username); err != nil {
		return Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	if err := m.store.CreateAccount(ctx, username, hash, m.now()); err != nil {
		return Session{}, err
	}
	return m.issue(ctx, username, false)
}

func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	name, hash, err := m.store.AccountHash(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		return Session{}, models.ErrUnauthenticated
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Session{}, models.ErrUnauthenticated
	}
	return m.issue(ctx, name, false)
}

func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, models.ErrUnauthenticated
	}
	return m.store.GetSession(ctx, token, m.now())
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}

func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.PurgeExpired(ctx, m.now())
}

func (m *Manager) isAdmin(username string, guest bool) bool {
	return !guest && slices.Contains(m.admins, strings.ToLower(username))
}

func (m *Manager) issue(ctx context.Context, username string, guest bool) (Session, error) {
	now := m.now().UTC()
	sess := Session{
		Username: username,
		Guest:    guest,
		Admin:    m.isAdmin(username, guest),
		Token:    uuid.NewString(),
		IssuedAt: now.Truncate(time.Millisecond),
	}
	if err := m.store.PutSession(ctx, sess, now.Add(m.ttl)); err != nil {
		return Session{}, err
	}
	return sess, nil
}
