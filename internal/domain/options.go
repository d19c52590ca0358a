package domain

import (
	"fmt"
	"strings"
)

// ConnOptions locate an index on the search engine. Two origins: the
// process-wide defaults held by the registry and a per-call override; the
// merge is field-by-field with the per-call value winning.
type ConnOptions struct {
	Host   string
	Port   int
	Index  string
	Type   string
	Prefix string
}

// MergedWith fills every unset field of o from defaults and returns the
// result. o itself is not modified.
func (o ConnOptions) MergedWith(defaults ConnOptions) ConnOptions {
	if o.Host == "" {
		o.Host = defaults.Host
	}
	if o.Port == 0 {
		o.Port = defaults.Port
	}
	if o.Index == "" {
		o.Index = defaults.Index
	}
	if o.Type == "" {
		o.Type = defaults.Type
	}
	if o.Prefix == "" {
		o.Prefix = defaults.Prefix
	}
	return o
}

// BaseURL renders the host:port pair as an absolute URL, defaulting to
// plain http when the host carries no scheme.
func (o ConnOptions) BaseURL() string {
	host := o.Host
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return fmt.Sprintf("%s:%d", host, o.Port)
}
