// Package events delivers gateway notifications to every configured sink
// from a background worker.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
)

// publishTimeout bounds one event's delivery to all sinks.
const publishTimeout = 5 * time.Second

// Dispatcher fans events out to sinks. Emit never blocks; a full queue or
// a failing sink only costs a log line.
type Dispatcher struct {
	sinks   []interfaces.EventSink
	queue   chan interfaces.Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

var _ interfaces.EventPublisher = (*Dispatcher)(nil)

func NewDispatcher(queueSize int, sinks ...interfaces.EventSink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &Dispatcher{
		sinks: sinks,
		queue: make(chan interfaces.Event, queueSize),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Emit(ev interfaces.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		logger.Warn(context.Background(), "Event queue full, event dropped", "type", ev.Type, "user", ev.User)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		if err := d.publish(ev); err != nil {
			logger.ErrorWithErr(context.Background(), "Event delivery failed", err, "type", ev.Type)
		}
	}
}

// publish sends ev to every sink and returns the combined failures.
func (d *Dispatcher) publish(ev interfaces.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	var errs error
	for _, s := range d.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSink writes every event to the structured log.
type LogSink struct{}

var _ interfaces.EventSink = LogSink{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(ctx context.Context, ev interfaces.Event) error {
	logger.Info(ctx, "Gateway event", "type", ev.Type, "user", ev.User, "broker", ev.Broker, "payload", ev.Payload)
	return nil
}
