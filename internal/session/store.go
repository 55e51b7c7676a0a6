package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

// DefaultDBFileName is the SQLite filename under the session data dir.
const DefaultDBFileName = "sessions.db"

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS accounts (
  username      TEXT PRIMARY KEY COLLATE NOCASE,
  password_hash BLOB NOT NULL,
  created_at    INTEGER NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS sessions (
  token      TEXT PRIMARY KEY,
  username   TEXT NOT NULL,
  guest      INTEGER NOT NULL DEFAULT 0,
  admin      INTEGER NOT NULL DEFAULT 0,
  issued_at  INTEGER NOT NULL,
  expires_at INTEGER NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at
ON sessions (expires_at);
`,
}

// Store is a thin wrapper around a SQLite connection.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
}

// Open opens (or creates) sessions.db under dataDir and runs migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return OpenPath(filepath.Join(dataDir, DefaultDBFileName))
}

func OpenPath(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", filepath.ToSlash(dbPath))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

func (s *Store) applyMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return fmt.Errorf("set schema version %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, username string, hash []byte, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, hash, now.UnixMilli())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("account %s: %w", username, models.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// AccountHash returns the stored username casing and password hash.
func (s *Store) AccountHash(ctx context.Context, username string) (string, []byte, error) {
	var name string
	var hash []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash FROM accounts WHERE username = ?`, username).Scan(&name, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, models.ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("select account: %w", err)
	}
	return name, hash, nil
}

func (s *Store) AccountExists(ctx context.Context, username string) (bool, error) {
	_, _, err := s.AccountHash(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) PutSession(ctx context.Context, sess Session, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, username, guest, admin, issued_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.Username, sess.Guest, sess.Admin, sess.IssuedAt.UnixMilli(), expiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns the session for token if it has not expired at now.
func (s *Store) GetSession(ctx context.Context, token string, now time.Time) (Session, error) {
	var (
		sess     Session
		issuedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, username, guest, admin, issued_at FROM sessions WHERE token = ? AND expires_at > ?`,
		token, now.UnixMilli()).Scan(&sess.Token, &sess.Username, &sess.Guest, &sess.Admin, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, models.ErrUnauthenticated
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session: %w", err)
	}
	sess.IssuedAt = time.UnixMilli(issuedAt).UTC()
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions that expired before now.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// GuestNameTaken reports whether a live guest session already uses name.
func (s *Store) GuestNameTaken(ctx context.Context, name string, now time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sessions WHERE username = ? COLLATE NOCASE AND expires_at > ?`,
		strings.TrimSpace(name), now.UnixMilli()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}
	return n > 0, nil
}
