// Package auditlog records every gateway command with its outcome. Writes
// happen on a background worker so the caller never waits on storage.
package auditlog

import (
	"context"
	"sync"
	"sync/atomic"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
)

// Recorder queues audit entries for a single writer goroutine. A full queue
// drops the entry with a warning; store failures are logged and dropped.
type Recorder struct {
	store   interfaces.AuditStore
	queue   chan interfaces.AuditEntry
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

var _ interfaces.Auditor = (*Recorder)(nil)

func NewRecorder(store interfaces.AuditStore, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &Recorder{
		store: store,
		queue: make(chan interfaces.AuditEntry, queueSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues e without blocking.
func (r *Recorder) Record(e interfaces.AuditEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
		logger.Warn(context.Background(), "Audit queue full, entry dropped", "operation", e.Operation, "user", e.User)
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) run() {
	defer close(r.done)
	ctx := context.Background()
	for e := range r.queue {
		if err := r.store.Write(ctx, e); err != nil {
			logger.ErrorWithErr(ctx, "Failed to write audit entry", err, "operation", e.Operation, "user", e.User)
		}
	}
}

// Close stops accepting entries, drains the queue and closes the store.
// It returns early with ctx's error if draining takes too long.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.store.Close()
}
