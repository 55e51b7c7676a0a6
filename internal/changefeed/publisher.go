package changefeed

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
)

// Publisher announces a committed write so live feeds see their own echo.
type Publisher interface {
	Publish(ctx context.Context, collection string, op models.Op, id string, doc any)
}

// NoopPublisher is used when the store pushes changes by itself.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, models.Op, string, any) {}

type BusPublisher struct {
	bus Bus
	now func() time.Time
}

func NewBusPublisher(bus Bus) *BusPublisher {
	return &BusPublisher{bus: bus, now: time.Now}
}

// Publish logs failures but never fails the write that triggered it.
func (p *BusPublisher) Publish(ctx context.Context, collection string, op models.Op, id string, doc any) {
	env := Envelope{
		Collection:  collection,
		Op:          op,
		ID:          id,
		ClusterTime: p.now().UTC(),
	}
	if doc != nil {
		data, err := json.Marshal(doc)
		if err != nil {
			logctx.Errorw(ctx, "marshal change document", "collection", collection, "id", id, "error", err)
			return
		}
		env.Document = data
	}
	if err := p.bus.Publish(ctx, env); err != nil {
		logctx.Errorw(ctx, "publish change", "collection", collection, "op", op, "id", id, "error", err)
	}
}
