// Package registry holds the process-wide default connection options and
// performs the per-call merge. It is the only shared mutable state in the
// core: written by explicit Configure calls, read by every gateway and
// index-client invocation.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/esmirror/esmirror/internal/domain"
)

// Registry stores the last-configured default ConnOptions. Construct once
// at process start and pass by reference to every component needing
// defaults.
type Registry struct {
	mu       sync.RWMutex
	defaults domain.ConnOptions
}

// New creates an empty registry. Until Configure supplies host and port,
// calls without a full per-call override fail with ErrConfiguration.
func New() *Registry {
	return &Registry{}
}

// Configure overwrites only the keys explicitly present in o, leaving the
// rest of the stored defaults untouched.
func (r *Registry) Configure(o domain.ConnOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.Host != "" {
		r.defaults.Host = o.Host
	}
	if o.Port != 0 {
		r.defaults.Port = o.Port
	}
	if o.Index != "" {
		r.defaults.Index = o.Index
	}
	if o.Type != "" {
		r.defaults.Type = o.Type
	}
	if o.Prefix != "" {
		r.defaults.Prefix = o.Prefix
	}
}

// Defaults returns a copy of the stored defaults.
func (r *Registry) Defaults() domain.ConnOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Resolve merges a per-call override over the stored defaults and applies
// built-ins: a missing index falls back to the lowercased collection name,
// a missing type to the index name. Host and port have no built-in; their
// absence fails with ErrConfiguration before any network activity.
//
// collection may be empty on the search path, where index and type do not
// participate in addressing.
func (r *Registry) Resolve(collection string, o domain.ConnOptions) (domain.ConnOptions, error) {
	merged := o.MergedWith(r.Defaults())

	if merged.Host == "" {
		return domain.ConnOptions{}, fmt.Errorf("host: %w", domain.ErrConfiguration)
	}
	if merged.Port == 0 {
		return domain.ConnOptions{}, fmt.Errorf("port: %w", domain.ErrConfiguration)
	}

	if collection != "" {
		if merged.Index == "" {
			merged.Index = strings.ToLower(collection)
		}
		if merged.Type == "" {
			merged.Type = merged.Index
		}
		// The same prefix convention used for search targets applies to
		// writes, or prefixed searches would never see the documents.
		if merged.Prefix != "" && !strings.HasPrefix(merged.Index, merged.Prefix+"-") {
			merged.Index = merged.Prefix + "-" + merged.Index
		}
	}
	return merged, nil
}
