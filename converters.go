package esmirror

import (
	"github.com/esmirror/esmirror/internal/domain"
)

// Converters between the public surface and internal domain types.

func toDomainSchema(s Schema) domain.Schema {
	return domain.Schema{Fields: toDomainFields(s.Fields)}
}

func toDomainFields(fields []Field) []domain.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]domain.Field, len(fields))
	for i, f := range fields {
		out[i] = domain.Field{
			Name:    f.Name,
			NoIndex: f.NoIndex,
			Fields:  toDomainFields(f.Fields),
		}
	}
	return out
}

func toDomainRecord(r Record) *domain.Record {
	return &domain.Record{
		ID:      r.ID,
		Fields:  toDomainValues(r.Fields),
		Version: r.Version,
	}
}

// toDomainValues rewrites public Ref wrappers into domain ones so the
// serializer can flatten them.
func toDomainValues(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = toDomainValue(v)
	}
	return out
}

func toDomainValue(v any) any {
	switch t := v.(type) {
	case Ref:
		return toDomainRef(t)
	case *Ref:
		if t == nil {
			return nil
		}
		return toDomainRef(*t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toDomainValue(e)
		}
		return out
	case map[string]any:
		return toDomainValues(t)
	default:
		return v
	}
}

func toDomainRef(r Ref) domain.Ref {
	ref := domain.Ref{ID: r.ID}
	if r.Record != nil {
		ref.Record = toDomainRecord(*r.Record)
	}
	return ref
}

func toDomainOptions(o Options) domain.ConnOptions {
	return domain.ConnOptions{
		Host:   o.Host,
		Port:   o.Port,
		Index:  o.Index,
		Type:   o.Type,
		Prefix: o.Prefix,
	}
}

func fromDomainEvent(e domain.Event) Event {
	return Event{
		Kind:       EventKind(e.Kind),
		Collection: e.Collection,
		ID:         e.ID,
		Response:   e.Response,
		Err:        e.Err,
	}
}

func fromDomainResult(r *domain.SearchResult) *SearchResult {
	out := &SearchResult{Total: r.Total, Hits: make([]Hit, len(r.Hits))}
	for i, h := range r.Hits {
		out.Hits[i] = Hit{
			Index:  h.Index,
			Type:   h.Type,
			ID:     h.ID,
			Score:  h.Score,
			Source: h.Source,
		}
	}
	return out
}
