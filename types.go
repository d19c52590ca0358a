package esmirror

import "encoding/json"

// Field describes one entry of a collection schema. A non-empty Fields
// slice marks an object field with a nested sub-schema; an object field is
// kept out of the index only when every sub-field is flagged NoIndex.
type Field struct {
	Name    string
	NoIndex bool
	Fields  []Field
}

// Schema is the schema descriptor attached to a collection. Immutable once
// registered.
type Schema struct {
	Fields []Field
}

// Record is a consistent snapshot of a primary-store record.
type Record struct {
	ID      string
	Fields  map[string]any
	Version int64
}

// Ref is a reference field value. When the primary store has expanded the
// reference, Record is non-nil and its plain fields are indexed in place
// of the wrapper; otherwise only the bare id is.
type Ref struct {
	ID     string
	Record *Record
}

// Options locate an index on the search engine. Unset fields fall back to
// the configured process-wide defaults, then to built-ins; host and port
// have no built-in.
type Options struct {
	Host   string
	Port   int
	Index  string
	Type   string
	Prefix string
}

// EventKind classifies a per-record notification.
type EventKind string

const (
	EventIndexed   EventKind = "indexed"
	EventUnindexed EventKind = "unindexed"
	EventError     EventKind = "error"
)

// Event is the out-of-band notification delivered after each per-record
// operation.
type Event struct {
	Kind       EventKind
	Collection string
	ID         string
	Response   json.RawMessage
	Err        error
}

// Listener receives per-record notifications. Called from the goroutine
// that performed the operation; implementations must be safe for
// concurrent use and should not block.
type Listener func(Event)

// SearchQuery describes one search request. Collections lists the
// collection names to query, empty meaning all; Body is the engine-native
// JSON query, passed through untouched.
type SearchQuery struct {
	Collections []string
	Body        json.RawMessage
}

// Hit is one normalized result document.
type Hit struct {
	Index  string
	Type   string
	ID     string
	Score  float64
	Source json.RawMessage
}

// SearchResult is the uniform result shape: ordered hits plus total count.
type SearchResult struct {
	Total int64
	Hits  []Hit
}
