package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Dispatcher queues events on a bounded buffer and hands them to a Sink from a
// single worker goroutine. When the buffer is full the event is dropped.
type Dispatcher struct {
	sink   Sink
	logger *zap.Logger
	events chan Event

	// mu guards closed and the close of events.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the delivery worker. Close must be called on shutdown
// to flush queued events.
func NewDispatcher(sink Sink, buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Record enqueues e without blocking.
func (d *Dispatcher) Record(_ context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("audit event dropped after shutdown", zap.String("action", e.Action), zap.String("resource", e.Resource))
		return
	}

	select {
	case d.events <- e:
	default:
		d.logger.Warn("audit buffer full, event dropped",
			zap.String("action", e.Action),
			zap.String("resource", e.Resource),
			zap.String("resource_id", e.ResourceID))
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := d.sink.Write(ctx, e); err != nil {
			d.logger.Error("audit delivery failed",
				zap.String("event_id", e.ID),
				zap.String("action", e.Action),
				zap.String("resource", e.Resource),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events, drains the queue and closes the sink.
// Calls after the first return nil.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	<-d.done
	return d.sink.Close()
}
