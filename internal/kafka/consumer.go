package kafka

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type handler struct {
	bus *Bus
}

func (h *handler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *handler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *handler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.bus.processMessage(sess.Context(), msg)
			sess.MarkMessage(msg, "")
		}
	}
}

func (b *Bus) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	start := time.Now()
	lagMs := start.Sub(msg.Timestamp).Milliseconds()

	err := b.handle(ctx, msg)
	duration := time.Since(start)

	code := getCode(err)
	content := "success"
	if err != nil {
		content = err.Error()
	}

	level := getLogLevel(code)
	logctx.Logw(ctx, level, content,
		"code", code,
		"duration_ms", duration.Milliseconds(),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"lag_ms", lagMs,
		"key", string(msg.Key),
		"value", json.RawMessage(msg.Value),
	)

	b.metrics.
		WithLabelValues(code.String(), msg.Topic, b.groupID).
		Observe(duration.Seconds())
}

func (b *Bus) handle(ctx context.Context, msg *sarama.ConsumerMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			length := runtime.Stack(stack, false)
			err = fmt.Errorf("PANIC RECOVER: %+v / %s", r, string(stack[:length]))
		}
	}()

	env, err := changefeed.UnmarshalEnvelope(msg.Value)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to unmarshal envelope: %v", err)
	}
	if env.Collection == "" {
		env.Collection = b.collection(msg.Topic)
	}
	if env.ClusterTime.IsZero() {
		env.ClusterTime = msg.Timestamp
	}
	return b.fanout.Publish(ctx, env)
}

func getCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	return status.Code(err)
}

func getLogLevel(code codes.Code) logger.Level {
	switch code {
	case codes.OK:
		return logger.DebugLevel
	case codes.Canceled,
		codes.InvalidArgument,
		codes.NotFound,
		codes.FailedPrecondition:
		return logger.WarnLevel
	default:
		return logger.ErrorLevel
	}
}
