package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
)

var _ changefeed.Bus = (*Bus)(nil)

// Bus carries change envelopes over one topic per collection. Each process
// joins with its own consumer group so every instance sees every change,
// then fans out to local subscribers.
type Bus struct {
	prefix   string
	topics   []string
	groupID  string
	producer sarama.SyncProducer
	group    sarama.ConsumerGroup
	fanout   *changefeed.MemoryBus
	metrics  *prometheus.HistogramVec

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSaramaConfig(cfg config.KafkaConfig) (*sarama.Config, error) {
	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("parse kafka version: %w", err)
	}
	sc := sarama.NewConfig()
	sc.Version = version
	sc.ClientID = "kvrp"
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	return sc, nil
}

func NewBus(cfg config.KafkaConfig, feed config.ChangeFeedConfig, collections []string) (*Bus, error) {
	sc, err := newSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}
	groupID := cfg.GroupID + "-" + uuid.NewString()[:8]
	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, sc)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("new consumer group: %w", err)
	}
	b, err := newBus(feed, collections, groupID, producer)
	if err != nil {
		_ = producer.Close()
		_ = group.Close()
		return nil, err
	}
	b.group = group
	return b, nil
}

func newBus(feed config.ChangeFeedConfig, collections []string, groupID string, producer sarama.SyncProducer) (*Bus, error) {
	metrics, err := util.GetHistogramVec("kafka_messages_consumed", "status", "topic", "group")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	b := &Bus{
		prefix:   feed.Prefix,
		groupID:  groupID,
		producer: producer,
		fanout:   changefeed.NewMemoryBus(feed.Buffer),
		metrics:  metrics,
	}
	for _, c := range collections {
		b.topics = append(b.topics, b.topic(c))
	}
	return b, nil
}

func (b *Bus) topic(collection string) string {
	return b.prefix + "." + collection
}

func (b *Bus) collection(topic string) string {
	return strings.TrimPrefix(topic, b.prefix+".")
}

// Start runs the consumer group until Stop.
func (b *Bus) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	logctx.Infof(ctx, "Starting Kafka change feed for topics: %v", b.topics)

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		h := &handler{bus: b}
		for ctx.Err() == nil {
			// Consume returns on every rebalance
			if err := b.group.Consume(ctx, b.topics, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				logctx.Errorw(ctx, "Error consuming change feed", "error", err)
			}
		}
	}()
	go func() {
		defer b.wg.Done()
		for err := range b.group.Errors() {
			logctx.Errorw(ctx, "Kafka consumer group error", "error", err)
		}
	}()
	return nil
}

func (b *Bus) Stop(ctx context.Context) error {
	logctx.Infof(ctx, "Stopping Kafka change feed")
	if b.cancel != nil {
		b.cancel()
	}
	var errs []error
	if b.group != nil {
		errs = append(errs, b.group.Close())
	}
	b.wg.Wait()
	errs = append(errs, b.producer.Close())
	return errors.Join(errs...)
}

func (b *Bus) Subscribe(ctx context.Context, collection string) (changefeed.Stream[changefeed.Envelope], error) {
	return b.fanout.Subscribe(ctx, collection)
}

func (b *Bus) Publish(ctx context.Context, env changefeed.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic(env.Collection),
		Key:   sarama.StringEncoder(env.ID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
