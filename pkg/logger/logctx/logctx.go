// Package logctx logs through the base logger with fields carried on a context.
package logctx

import (
	"context"

	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"go.uber.org/zap"
)

type fieldsKey struct{}

// With returns a context whose log lines carry the given key-value pairs.
func With(ctx context.Context, keysAndValues ...any) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]any)
	fields := make([]any, 0, len(prev)+len(keysAndValues))
	fields = append(fields, prev...)
	fields = append(fields, keysAndValues...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func Fields(ctx context.Context) []any {
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

func sugar(ctx context.Context) *zap.SugaredLogger {
	s := logger.Base().Sugar()
	if fields := Fields(ctx); len(fields) > 0 {
		s = s.With(fields...)
	}
	return s
}

func Debugw(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Debugw(msg, keysAndValues...)
}

func Infow(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Infow(msg, keysAndValues...)
}

func Warnw(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Warnw(msg, keysAndValues...)
}

func Errorw(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Errorw(msg, keysAndValues...)
}

func Logw(ctx context.Context, level logger.Level, msg string, keysAndValues ...any) {
	sugar(ctx).Logw(level, msg, keysAndValues...)
}

func Infof(ctx context.Context, template string, args ...any) {
	sugar(ctx).Infof(template, args...)
}

func Warnf(ctx context.Context, template string, args ...any) {
	sugar(ctx).Warnf(template, args...)
}

func Errorf(ctx context.Context, template string, args ...any) {
	sugar(ctx).Errorf(template, args...)
}
