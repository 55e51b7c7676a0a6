package changefeed

import (
	"context"
	"sync"
)

// MemoryBus fans envelopes out to in-process subscribers.
type MemoryBus struct {
	buffer int

	mu   sync.RWMutex
	subs map[string]map[*Pipe[Envelope]]struct{}
}

func NewMemoryBus(buffer int) *MemoryBus {
	return &MemoryBus{
		buffer: buffer,
		subs:   make(map[string]map[*Pipe[Envelope]]struct{}),
	}
}

func (b *MemoryBus) Subscribe(ctx context.Context, collection string) (Stream[Envelope], error) {
	p, ctx := NewPipe[Envelope](ctx, b.buffer)
	b.mu.Lock()
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[*Pipe[Envelope]]struct{})
	}
	b.subs[collection][p] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.stop()
		b.mu.Lock()
		delete(b.subs[collection], p)
		b.mu.Unlock()
		p.Finish(ctx.Err())
	}()
	return p, nil
}

func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	// subscribers are only finished under the write lock, so sends are safe here
	b.mu.RLock()
	defer b.mu.RUnlock()
	for p := range b.subs[env.Collection] {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Send(env)
	}
	return nil
}
