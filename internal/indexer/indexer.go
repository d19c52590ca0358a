// Package indexer implements the per-record index/unindex operations:
// serialize, optionally enrich, write through the retrying transport, and
// notify the primary-store collaborator out-of-band.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/metrics"
	"github.com/esmirror/esmirror/internal/registry"
)

// Transport is the consumer interface toward the search engine.
type Transport interface {
	PutDocument(ctx context.Context, opts domain.ConnOptions, id string, body map[string]any) (json.RawMessage, error)
	DeleteDocument(ctx context.Context, opts domain.ConnOptions, id string) (json.RawMessage, error)
}

// Enricher mutates a document body before it is written, e.g. to attach an
// embedding vector. Optional.
type Enricher interface {
	Enrich(ctx context.Context, collection string, body map[string]any) error
}

// Client performs single-record index and unindex operations. Stateless
// between operations; index and type are resolved from the registry at the
// moment each operation is issued, never cached.
type Client struct {
	transport Transport
	registry  *registry.Registry
	listener  domain.Listener
	enricher  Enricher
	logger    *zap.Logger
}

// New creates an index client.
func New(transport Transport, reg *registry.Registry, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: transport, registry: reg, logger: logger}
}

// WithListener sets the notification sink for indexed/unindexed/error events.
func (c *Client) WithListener(l domain.Listener) *Client {
	c.listener = l
	return c
}

// WithEnricher sets an optional document-body enricher.
func (c *Client) WithEnricher(e Enricher) *Client {
	c.enricher = e
	return c
}

// Index serializes the record and issues a create-or-replace write keyed by
// the record id. Success notifies "indexed" with the remote response body;
// any failure notifies "error" with the wrapped cause. The error is also
// returned for callers that aggregate (the resync path); lifecycle-hook
// callers discard it because the primary-store write already committed.
func (c *Client) Index(
	ctx context.Context, collection string,
	rec *domain.Record, fields domain.FieldSet, opts domain.ConnOptions,
) error {
	resolved, err := c.registry.Resolve(collection, opts)
	if err != nil {
		return c.fail(collection, rec.ID, "index", err)
	}

	body, err := domain.BuildBody(rec, fields)
	if err != nil {
		// The write is never attempted for an unserializable document.
		return c.fail(collection, rec.ID, "index", err)
	}

	if c.enricher != nil {
		if err := c.enricher.Enrich(ctx, collection, body); err != nil {
			return c.fail(collection, rec.ID, "index", fmt.Errorf("enrich: %w", err))
		}
	}

	resp, err := c.transport.PutDocument(ctx, resolved, rec.ID, body)
	if err != nil {
		return c.fail(collection, rec.ID, "index", err)
	}

	metrics.IndexOperationsTotal.WithLabelValues(collection, "index", "success").Inc()
	c.notify(domain.Event{
		Kind:       domain.EventIndexed,
		Collection: collection,
		ID:         rec.ID,
		Response:   resp,
	})
	return nil
}

// Unindex issues an idempotent delete by document id. A record may be
// unindexed without being removed from the primary store (soft delete);
// deleting an already-absent document succeeds.
func (c *Client) Unindex(
	ctx context.Context, collection string, rec *domain.Record, opts domain.ConnOptions,
) error {
	resolved, err := c.registry.Resolve(collection, opts)
	if err != nil {
		return c.fail(collection, rec.ID, "unindex", err)
	}

	resp, err := c.transport.DeleteDocument(ctx, resolved, rec.ID)
	if err != nil {
		return c.fail(collection, rec.ID, "unindex", err)
	}

	metrics.IndexOperationsTotal.WithLabelValues(collection, "unindex", "success").Inc()
	c.notify(domain.Event{
		Kind:       domain.EventUnindexed,
		Collection: collection,
		ID:         rec.ID,
		Response:   resp,
	})
	return nil
}

func (c *Client) fail(collection, id, op string, err error) error {
	wrapped := fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
	metrics.IndexOperationsTotal.WithLabelValues(collection, op, "error").Inc()
	c.logger.Warn("index operation failed",
		zap.String("collection", collection),
		zap.String("id", id),
		zap.String("op", op),
		zap.Error(err),
	)
	c.notify(domain.Event{
		Kind:       domain.EventError,
		Collection: collection,
		ID:         id,
		Err:        wrapped,
	})
	return wrapped
}

func (c *Client) notify(e domain.Event) {
	if c.listener != nil {
		c.listener.Notify(e)
	}
}
