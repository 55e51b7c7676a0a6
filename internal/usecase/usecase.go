package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
)

// base carries what every mutation needs: its deadline, the clock and the
// failure wrapping.
type base struct {
	timeout time.Duration
	now     func() time.Time
}

func newBase(cfg *config.Config) base {
	return base{timeout: cfg.Feed.MutationTimeout, now: time.Now}
}

func (b base) begin(ctx context.Context, sess session.Session, op string) (context.Context, context.CancelFunc, error) {
	if sess.IsZero() {
		return ctx, func() {}, models.NewFailure(models.MutationFailure, op, models.ErrUnauthenticated)
	}
	ctx = logctx.With(ctx, "op", op, "user", sess.Username)
	ctx, cancel := util.NewTimeoutContext(ctx, b.timeout)
	return ctx, cancel, nil
}

// fail wraps err as a MutationFailure unless it already is a Failure.
func fail(op string, err error) error {
	var f *models.Failure
	if errors.As(err, &f) {
		return err
	}
	return models.NewFailure(models.MutationFailure, op, err)
}

func requireAdmin(sess session.Session) error {
	if !sess.Admin {
		return fmt.Errorf("%w: admin only", models.ErrPermissionDenied)
	}
	return nil
}

func requireMember(sess session.Session, what string) error {
	if sess.Guest {
		return fmt.Errorf("%w: guests cannot %s", models.ErrPermissionDenied, what)
	}
	return nil
}

func canModify(sess session.Session, author string) error {
	if sess.Admin || sess.Username == author {
		return nil
	}
	return fmt.Errorf("%w: only the author or an admin can do this", models.ErrPermissionDenied)
}

// checkText trims s and enforces required and max rune length.
func checkText(field, s string, required bool, max int) (string, error) {
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("%w: %s is required", models.ErrInvalidArgument, field)
	}
	if n := utf8.RuneCountInString(s); n > max {
		return "", fmt.Errorf("%w: %s is %d characters, max %d", models.ErrInvalidArgument, field, n, max)
	}
	return s, nil
}
