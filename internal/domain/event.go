package domain

import "encoding/json"

// EventKind classifies a per-record notification.
type EventKind string

const (
	// EventIndexed reports a successful index/replace write.
	EventIndexed EventKind = "indexed"
	// EventUnindexed reports a successful delete.
	EventUnindexed EventKind = "unindexed"
	// EventError reports a failed operation with the wrapped cause.
	EventError EventKind = "error"
)

// Event is the out-of-band notification emitted toward the primary-store
// collaborator after each per-record operation. Index propagation is
// fire-and-forget relative to the triggering write, so failures travel
// here instead of through return values on the lifecycle path.
type Event struct {
	Kind       EventKind
	Collection string
	ID         string

	// Response is the remote response body for indexed/unindexed events.
	Response json.RawMessage

	// Err carries the wrapped cause for error events.
	Err error
}

// Listener receives per-record notifications.
type Listener interface {
	Notify(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// Notify calls f(e).
func (f ListenerFunc) Notify(e Event) { f(e) }
