package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/nguyentranbao-ct/kvrp/internal/changefeed"
	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func newTestBus(t *testing.T, producer sarama.SyncProducer) *Bus {
	t.Helper()
	b, err := newBus(config.ChangeFeedConfig{Prefix: "kvrp", Buffer: 8}, []string{"posts", "chat_messages"}, "kvrp-feed-test", producer)
	require.NoError(t, err)
	return b
}

func TestBusTopics(t *testing.T) {
	t.Parallel()

	b := newTestBus(t, mocks.NewSyncProducer(t, nil))
	assert.Equal(t, []string{"kvrp.posts", "kvrp.chat_messages"}, b.topics)
	assert.Equal(t, "posts", b.collection("kvrp.posts"))
}

func TestBusPublish(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		env, err := changefeed.UnmarshalEnvelope(val)
		if err != nil {
			return err
		}
		if env.ID != "p1" || env.Op != models.OpDelete {
			return errors.New("unexpected envelope")
		}
		return nil
	})
	b := newTestBus(t, producer)

	err := b.Publish(t.Context(), changefeed.Envelope{Collection: "posts", Op: models.OpDelete, ID: "p1"})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestBusConsumeFansOut(t *testing.T) {
	t.Parallel()

	b := newTestBus(t, mocks.NewSyncProducer(t, nil))
	stream, err := b.Subscribe(t.Context(), "posts")
	require.NoError(t, err)
	defer stream.Close()

	env := changefeed.Envelope{Op: models.OpInsert, ID: "p1", Document: []byte(`{"id":"p1"}`)}
	data, err := env.Marshal()
	require.NoError(t, err)

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.processMessage(t.Context(), &sarama.ConsumerMessage{Topic: "kvrp.posts", Value: data, Timestamp: ts})

	select {
	case got := <-stream.Events():
		assert.Equal(t, "posts", got.Collection)
		assert.Equal(t, "p1", got.ID)
		assert.Equal(t, ts, got.ClusterTime)
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope delivered")
	}
}

func TestHandleRejectsGarbage(t *testing.T) {
	t.Parallel()

	b := newTestBus(t, mocks.NewSyncProducer(t, nil))
	err := b.handle(t.Context(), &sarama.ConsumerMessage{Topic: "kvrp.posts", Value: []byte("{")})
	assert.Equal(t, codes.InvalidArgument, getCode(err))
	assert.Equal(t, codes.OK, getCode(nil))
}
