package domain

// Record is a consistent snapshot of a primary-store record, passed in with
// each lifecycle event. The primary store owns the record; esmirror only
// reads it.
type Record struct {
	// ID is opaque and unique within the record's collection. The index
	// document derived from this record always carries the same id.
	ID string

	// Fields maps field name to value as stored in the primary store.
	Fields map[string]any

	// Version is a runtime-only revision counter maintained by the primary
	// store. It never reaches the index body unless the schema lists a
	// field of the same name.
	Version int64
}

// Ref is a reference field value pointing at a record in another collection.
// When the primary store has expanded the reference, Record is non-nil and
// the serializer flattens it to the referenced record's plain fields;
// otherwise only the bare id is indexed.
type Ref struct {
	ID     string
	Record *Record
}
