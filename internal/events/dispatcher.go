package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrQueueFull = errors.New("event queue full")

const publishTimeout = 5 * time.Second

// Dispatcher decouples event producers from a slow Publisher. Publish only
// enqueues; Run forwards queued events in order.
type Dispatcher struct {
	pub   Publisher
	queue chan Event
	done  chan struct{}
}

// NewDispatcher creates a dispatcher buffering up to size events.
func NewDispatcher(pub Publisher, size int) *Dispatcher {
	return &Dispatcher{
		pub:   pub,
		queue: make(chan Event, size),
		done:  make(chan struct{}),
	}
}

// Publish enqueues event without blocking. It fails with ErrQueueFull when
// the buffer is exhausted.
func (d *Dispatcher) Publish(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run forwards events until ctx is cancelled, then flushes what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case event := <-d.queue:
			d.forward(ctx, event)
		}
	}
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.forward(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) forward(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := d.pub.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", "event.type", event.Type, "event.id", event.ID, "error", err)
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Close closes the underlying publisher. Call it after Run has returned.
func (d *Dispatcher) Close() error {
	return d.pub.Close()
}
