// Package changefeed delivers row-level change events for a collection.
package changefeed

import (
	"context"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

// Stream is a live subscription. Events is closed when the stream ends,
// after which Err reports why (nil when closed by the caller).
type Stream[T any] interface {
	Events() <-chan T
	Err() error
	Close() error
}

type Subscription struct {
	Collection string
	Filter     models.Filter
	// Ops restricts delivered operations; empty means all.
	Ops []models.Op
}

func (s Subscription) Wants(op models.Op) bool {
	return len(s.Ops) == 0 || slices.Contains(s.Ops, op)
}

type Source[R models.Record] interface {
	Subscribe(ctx context.Context, sub Subscription) (Stream[models.ChangeEvent[R]], error)
}

// Envelope is the wire form of a change on message bus drivers.
type Envelope struct {
	Collection  string          `json:"collection"`
	Op          models.Op       `json:"op"`
	ID          string          `json:"id"`
	Document    json.RawMessage `json:"document,omitempty"`
	ClusterTime time.Time       `json:"cluster_time"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// Bus carries envelopes per collection. Kafka and redis implement it.
type Bus interface {
	Subscribe(ctx context.Context, collection string) (Stream[Envelope], error)
	Publish(ctx context.Context, env Envelope) error
}
