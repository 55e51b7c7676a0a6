package changefeed

import (
	"context"
	"errors"
	"sync"
)

// Pipe is the channel plumbing shared by every driver. The producer
// goroutine calls Send until it returns false, then Finish exactly once.
type Pipe[T any] struct {
	ch       chan T
	done     chan struct{}
	finished chan struct{}
	cancel   context.CancelFunc

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
	closed    bool
}

// NewPipe returns the pipe and the context the producer must run under.
func NewPipe[T any](ctx context.Context, buffer int) (*Pipe[T], context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Pipe[T]{
		ch:       make(chan T, max(buffer, 0)),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		cancel:   cancel,
	}, ctx
}

func (p *Pipe[T]) Events() <-chan T {
	return p.ch
}

func (p *Pipe[T]) Send(v T) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.ch <- v:
		return true
	case <-p.done:
		return false
	}
}

// Done is closed once the consumer closes the pipe.
func (p *Pipe[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Pipe[T]) Finish(err error) {
	p.mu.Lock()
	if !p.closed && err != nil && !errors.Is(err, context.Canceled) {
		p.err = err
	}
	p.mu.Unlock()
	close(p.ch)
	close(p.finished)
}

func (p *Pipe[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close stops the producer and waits for it to exit.
func (p *Pipe[T]) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stop()
	<-p.finished
	return nil
}

// stop unblocks pending sends without waiting for the producer.
func (p *Pipe[T]) stop() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.cancel()
	})
}
