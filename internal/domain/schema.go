package domain

// Field describes one entry of a schema descriptor. A non-empty Fields
// slice marks an object field with a nested sub-schema.
type Field struct {
	Name    string
	NoIndex bool
	Fields  []Field
}

// Schema is the ordered schema descriptor attached to a collection.
// Immutable once attached.
type Schema struct {
	Fields []Field
}

// FieldSet is the set of field names eligible for indexing.
type FieldSet map[string]struct{}

// Contains reports whether name is in the set.
func (s FieldSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// IndexedFields derives the set of indexable field names from the schema.
// A simple field is included unless it is flagged no-index. An object field
// is excluded only when every one of its sub-fields is flagged no-index;
// a single unflagged sub-field keeps the whole object in. An empty schema
// yields an empty set.
//
// The selection is cheap but callers are expected to compute it once per
// collection and reuse it across serializations.
func (s Schema) IndexedFields() FieldSet {
	set := make(FieldSet, len(s.Fields))
	for _, f := range s.Fields {
		if f.indexed() {
			set[f.Name] = struct{}{}
		}
	}
	return set
}

func (f Field) indexed() bool {
	if len(f.Fields) == 0 {
		return !f.NoIndex
	}
	for _, sub := range f.Fields {
		if !sub.NoIndex {
			return true
		}
	}
	return false
}
