package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RPS   float64
	Burst int
	// Idle limiters are dropped after this long.
	Idle time.Duration
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter keeps one token bucket per user, or per client IP for
// anonymous requests.
type RateLimiter struct {
	mu      sync.Mutex
	conf    RateLimitConfig
	entries map[string]*limiterEntry
	now     func() time.Time
	swept   time.Time
}

func NewRateLimiter(conf RateLimitConfig) *RateLimiter {
	if conf.Idle <= 0 {
		conf.Idle = 10 * time.Minute
	}
	return &RateLimiter{
		conf:    conf,
		entries: map[string]*limiterEntry{},
		now:     time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if l.conf.RPS <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > l.conf.Idle {
		for k, e := range l.entries {
			if now.Sub(e.seen) > l.conf.Idle {
				delete(l.entries, k)
			}
		}
		l.swept = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.conf.RPS), max(l.conf.Burst, 1))}
		l.entries[key] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if sess := GetSession(c); !sess.IsZero() {
				key = "user:" + sess.Username
			}
			if !l.Allow(key) {
				return models.ErrRateLimited
			}
			return next(c)
		}
	}
}
