package esmirror

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Doer executes a single HTTP request toward the search engine.
// *http.Client satisfies it; supply a custom executor to control the
// transport.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Enricher mutates a document body before it is written.
type Enricher interface {
	Enrich(ctx context.Context, collection string, body map[string]any) error
}

// Option configures a Mirror.
type Option func(*mirrorConfig)

type mirrorConfig struct {
	defaults    Options
	doer        Doer
	listener    Listener
	enricher    Enricher
	logger      *zap.Logger
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	inFlight    int
}

// WithDefaults sets the process-wide default connection options.
func WithDefaults(o Options) Option {
	return func(c *mirrorConfig) { c.defaults = o }
}

// WithHTTPClient sets the request executor used for all search engine
// calls.
func WithHTTPClient(d Doer) Option {
	return func(c *mirrorConfig) { c.doer = d }
}

// WithListener sets the notification sink for indexed/unindexed/error
// events.
func WithListener(l Listener) Option {
	return func(c *mirrorConfig) { c.listener = l }
}

// WithEnricher sets an optional document-body enricher.
func WithEnricher(e Enricher) Option {
	return func(c *mirrorConfig) { c.enricher = e }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *mirrorConfig) { c.logger = l }
}

// WithRetry tunes the backoff schedule for transient failures.
func WithRetry(baseDelay, maxDelay time.Duration) Option {
	return func(c *mirrorConfig) {
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithMaxAttempts caps transient retries per request. Zero, the default,
// retries without bound.
func WithMaxAttempts(n int) Option {
	return func(c *mirrorConfig) { c.maxAttempts = n }
}

// WithInFlight bounds concurrent writes during resynchronization.
func WithInFlight(n int) Option {
	return func(c *mirrorConfig) { c.inFlight = n }
}
