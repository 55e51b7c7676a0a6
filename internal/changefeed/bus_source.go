package changefeed

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
)

// BusSource decodes envelopes from a Bus into typed events and applies the
// subscription filter on the client.
type BusSource[R models.Record] struct {
	bus    Bus
	buffer int
	log    *logger.Logger
}

func NewBusSource[R models.Record](bus Bus, buffer int) *BusSource[R] {
	return &BusSource[R]{
		bus:    bus,
		buffer: buffer,
		log:    logger.MustNamed("changefeed"),
	}
}

func (s *BusSource[R]) Subscribe(ctx context.Context, sub Subscription) (Stream[models.ChangeEvent[R]], error) {
	if sub.Collection == "" {
		return nil, fmt.Errorf("%w: subscription without collection", models.ErrInvalidArgument)
	}
	in, err := s.bus.Subscribe(ctx, sub.Collection)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", sub.Collection, err)
	}

	out, ctx := NewPipe[models.ChangeEvent[R]](ctx, s.buffer)
	go func() {
		defer func() {
			_ = in.Close()
			out.Finish(in.Err())
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-in.Events():
				if !ok {
					return
				}
				ev, keep, err := decodeEnvelope[R](env, sub)
				if err != nil {
					s.log.Warnw("drop undecodable change", "collection", env.Collection, "id", env.ID, "error", err)
					continue
				}
				if keep && !out.Send(ev) {
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeEnvelope[R models.Record](env Envelope, sub Subscription) (models.ChangeEvent[R], bool, error) {
	ev := models.ChangeEvent[R]{Op: env.Op, ID: env.ID, ClusterTime: env.ClusterTime}
	if !sub.Wants(env.Op) {
		return ev, false, nil
	}
	if len(env.Document) == 0 {
		// deletes may arrive without a body; an unknown id is a no-op downstream
		return ev, env.Op == models.OpDelete, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(env.Document, &doc); err != nil {
		return ev, false, err
	}
	if !sub.Filter.Match(doc) {
		return ev, false, nil
	}
	if env.Op != models.OpDelete {
		if err := json.Unmarshal(env.Document, &ev.Record); err != nil {
			return ev, false, err
		}
		if ev.ID == "" {
			ev.ID = ev.Record.Key()
		}
	}
	return ev, true, nil
}
