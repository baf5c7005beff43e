// Package audit delivers best-effort audit events. Recording never blocks the
// caller and delivery failures never reach it.
package audit

import (
	"context"
	"time"
)

// Actions recorded in the audit trail.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionView   = "VIEW"
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
)

// Event is one audit record. OldValues is filled by the caller from an
// explicit read taken before the mutation.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	UserID     *int      `json:"user_id,omitempty"`
	OldValues  any       `json:"old_values,omitempty"`
	NewValues  any       `json:"new_values,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Sink writes an event to durable storage or a broker.
type Sink interface {
	Write(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
