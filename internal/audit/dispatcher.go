package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferSize is the queue capacity used when none is configured.
const DefaultBufferSize = 1024

// Dispatcher queues events for a single worker that writes them to a Sink.
// Record never blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	sink   Sink
	logger *slog.Logger
	events chan Event
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher creates a Dispatcher and starts its worker. Call Close to drain it.
func NewDispatcher(sink Sink, bufferSize int, logger *slog.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		events: make(chan Event, bufferSize),
		now:    time.Now,
		done:   make(chan struct{}),
	}

	go d.run()

	return d
}

// Record enqueues event, stamping OccurredAt when unset.
func (d *Dispatcher) Record(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("audit dispatcher closed, dropping event", slog.String("action", event.Action))
		return
	}

	select {
	case d.events <- event:
	default:
		d.logger.Warn("audit queue full, dropping event", slog.String("action", event.Action))
	}
}

// Close stops accepting events and waits until queued ones are written.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	<-d.done
	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.events {
		if err := d.sink.Write(context.Background(), event); err != nil {
			d.logger.Error("failed to write audit event",
				slog.String("action", event.Action),
				slog.Any("error", err),
			)
		}
	}
}
