package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// Logger is a named sugared logger.
type Logger struct {
	*zap.SugaredLogger
}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init replaces the process-wide base logger. format is "json" or "console".
func Init(level, format string) error {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	conf := zap.NewProductionConfig()
	if format == "console" {
		conf = zap.NewDevelopmentConfig()
	}
	conf.Level = zap.NewAtomicLevelAt(lvl)
	conf.DisableStacktrace = lvl > zapcore.DebugLevel

	l, err := conf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	mu.Lock()
	base = l
	mu.Unlock()
	return nil
}

// SetBase is used by tests to capture output.
func SetBase(l *zap.Logger) {
	mu.Lock()
	base = l
	mu.Unlock()
}

func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func MustNamed(name string) *Logger {
	if name == "" {
		panic("logger: empty name")
	}
	return &Logger{SugaredLogger: Base().Named(name).Sugar()}
}

func (l *Logger) Unwrap() *zap.SugaredLogger {
	return l.SugaredLogger
}

// Logw logs at the given level with key-value pairs.
func (l *Logger) Logw(level Level, msg string, keysAndValues ...any) {
	l.SugaredLogger.Logw(level, msg, keysAndValues...)
}
