// Package redis carries change envelopes over redis pub/sub, one channel
// per collection.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var _ changefeed.Bus = (*Bus)(nil)

type Bus struct {
	client *redis.Client
	prefix string
	fanout *changefeed.MemoryBus
	log    *logger.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewBus(client *redis.Client, feed config.ChangeFeedConfig) *Bus {
	return &Bus{
		client: client,
		prefix: feed.Prefix,
		fanout: changefeed.NewMemoryBus(feed.Buffer),
		log:    logger.MustNamed("redis_bus"),
	}
}

func (b *Bus) channel(collection string) string {
	return b.prefix + ":" + collection
}

// Start subscribes to every collection channel and fans messages out
// until Stop.
func (b *Bus) Start(ctx context.Context) error {
	b.pubsub = b.client.PSubscribe(ctx, b.prefix+":*")
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		return fmt.Errorf("psubscribe %s:*: %w", b.prefix, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		bg := context.WithoutCancel(ctx)
		for msg := range b.pubsub.Channel() {
			env, err := changefeed.UnmarshalEnvelope([]byte(msg.Payload))
			if err != nil {
				b.log.Warnw("drop malformed envelope", "channel", msg.Channel, "error", err)
				continue
			}
			if env.Collection == "" {
				env.Collection = strings.TrimPrefix(msg.Channel, b.prefix+":")
			}
			_ = b.fanout.Publish(bg, env)
		}
	}()
	return nil
}

func (b *Bus) Stop(context.Context) error {
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}

func (b *Bus) Subscribe(ctx context.Context, collection string) (changefeed.Stream[changefeed.Envelope], error) {
	return b.fanout.Subscribe(ctx, collection)
}

func (b *Bus) Publish(ctx context.Context, env changefeed.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(env.Collection), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", b.channel(env.Collection), err)
	}
	return nil
}
