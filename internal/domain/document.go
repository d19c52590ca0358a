package domain

import (
	"encoding/json"
	"fmt"
)

// BuildBody converts a record into an index-ready document body: a plain
// mapping containing only keys in fields, with reference values flattened
// to their referenced records. Runtime-only record attributes never appear
// because they are not part of the field set.
//
// Returns a SerializationError when a field value cannot be converted to a
// transmittable representation; the write for this document must then not
// be attempted.
func BuildBody(rec *Record, fields FieldSet) (map[string]any, error) {
	body := make(map[string]any, len(fields))
	for name := range fields {
		v, ok := rec.Fields[name]
		if !ok {
			continue
		}
		v = flatten(v)
		if _, err := json.Marshal(v); err != nil {
			return nil, &SerializationError{Field: name, Cause: err}
		}
		body[name] = v
	}
	return body, nil
}

// flatten replaces reference wrappers with their plain referenced value so
// transient runtime state never reaches the wire.
func flatten(v any) any {
	switch t := v.(type) {
	case Ref:
		return flattenRef(t)
	case *Ref:
		if t == nil {
			return nil
		}
		return flattenRef(*t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = flatten(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = flatten(e)
		}
		return out
	default:
		return v
	}
}

func flattenRef(r Ref) any {
	if r.Record == nil {
		return r.ID
	}
	out := make(map[string]any, len(r.Record.Fields))
	for k, e := range r.Record.Fields {
		out[k] = flatten(e)
	}
	return out
}

// SerializationError reports a field whose value cannot be transmitted.
type SerializationError struct {
	Field string
	Cause error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize field %q: %v", e.Field, e.Cause)
}

func (e *SerializationError) Unwrap() error { return ErrSerialization }
