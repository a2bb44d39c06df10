package interfaces

import (
	"context"
	"time"
)

// AuditEntry is one request/response pair written to the audit log.
type AuditEntry struct {
	Time      time.Time `json:"ts"`
	User      string    `json:"user"`
	Broker    string    `json:"broker"`
	Operation string    `json:"operation"`
	Request   any       `json:"request"`
	Response  any       `json:"response"`
}

// AuditStore persists audit entries.
type AuditStore interface {
	Write(ctx context.Context, e AuditEntry) error
	Close() error
}

// Auditor accepts entries without blocking the caller.
type Auditor interface {
	Record(e AuditEntry)
}

// Event is a notification emitted after a broker call completes.
type Event struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Broker  string `json:"broker"`
	Payload any    `json:"payload"`
}

// EventSink delivers events to one destination.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// EventPublisher accepts events without blocking the caller.
type EventPublisher interface {
	Emit(ev Event)
}
