// Package esmirror keeps a full-text search index consistent with records
// held in a primary datastore. Record lifecycle events flow in through the
// RecordObserver capability interface; index propagation runs
// asynchronously with retries and reports success or failure out-of-band.
package esmirror

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/esmirror/esmirror/internal/backoff"
	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/es"
	"github.com/esmirror/esmirror/internal/gateway"
	"github.com/esmirror/esmirror/internal/indexer"
	"github.com/esmirror/esmirror/internal/registry"
	"github.com/esmirror/esmirror/internal/syncer"
)

// RecordObserver is the capability interface the primary-store collaborator
// invokes synchronously after each committed write. Mirror implements it;
// the store registers the mirror instead of the mirror patching the store.
type RecordObserver interface {
	RecordSaved(collection string, rec Record, schema Schema)
	RecordRemoved(collection string, rec Record, schema Schema)
}

// Mirror is the esmirror entry point. Construct one per process with New
// and register it with the primary store.
type Mirror struct {
	registry *registry.Registry
	indexer  *indexer.Client
	engine   *syncer.Engine
	gateway  *gateway.Gateway
	logger   *zap.Logger

	mu          sync.RWMutex
	collections map[string]collectionEntry

	wg sync.WaitGroup
}

var _ RecordObserver = (*Mirror)(nil)

type collectionEntry struct {
	fields domain.FieldSet
	opts   domain.ConnOptions
}

// New creates a Mirror.
func New(opts ...Option) *Mirror {
	cfg := &mirrorConfig{}
	for _, o := range opts {
		o(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retry := backoff.DefaultConfig()
	if cfg.baseDelay > 0 {
		retry.BaseDelay = cfg.baseDelay
	}
	if cfg.maxDelay > 0 {
		retry.MaxDelay = cfg.maxDelay
	}
	retry.MaxAttempts = cfg.maxAttempts

	reg := registry.New()
	reg.Configure(toDomainOptions(cfg.defaults))

	transport := es.New(cfg.doer, retry, logger)

	idx := indexer.New(transport, reg, logger)
	if cfg.listener != nil {
		listener := cfg.listener
		idx = idx.WithListener(domain.ListenerFunc(func(e domain.Event) {
			listener(fromDomainEvent(e))
		}))
	}
	if cfg.enricher != nil {
		idx = idx.WithEnricher(enricherAdapter{inner: cfg.enricher})
	}

	engine := syncer.New(idx, logger)
	if cfg.inFlight > 0 {
		engine = engine.WithInFlight(cfg.inFlight)
	}

	return &Mirror{
		registry:    reg,
		indexer:     idx,
		engine:      engine,
		gateway:     gateway.New(transport, reg, logger),
		logger:      logger,
		collections: make(map[string]collectionEntry),
	}
}

// Configure overwrites the process-wide default connection options; only
// keys present in o are touched.
func (m *Mirror) Configure(o Options) {
	m.registry.Configure(toDomainOptions(o))
}

// Register binds a collection to its schema and per-collection connection
// overrides. The indexable field selection is computed here, once, and
// reused by every subsequent operation on the collection.
func (m *Mirror) Register(collection string, schema Schema, opts Options) {
	entry := collectionEntry{
		fields: toDomainSchema(schema).IndexedFields(),
		opts:   toDomainOptions(opts),
	}
	m.mu.Lock()
	m.collections[collection] = entry
	m.mu.Unlock()
}

// RecordSaved propagates a committed save into the index. Fire-and-forget:
// it returns immediately and reports the outcome through the listener.
func (m *Mirror) RecordSaved(collection string, rec Record, schema Schema) {
	entry := m.entryFor(collection, schema)
	drec := toDomainRecord(rec)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.indexer.Index(context.Background(), collection, drec, entry.fields, entry.opts)
	}()
}

// RecordRemoved propagates a committed remove into the index.
// Fire-and-forget, like RecordSaved.
func (m *Mirror) RecordRemoved(collection string, rec Record, _ Schema) {
	entry := m.entryFor(collection, Schema{})
	drec := toDomainRecord(rec)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.indexer.Unindex(context.Background(), collection, drec, entry.opts)
	}()
}

// Index writes one record synchronously. Unlike the lifecycle path it
// returns the failure, for callers that want to handle it inline.
func (m *Mirror) Index(ctx context.Context, collection string, rec Record, schema Schema) error {
	entry := m.entryFor(collection, schema)
	return m.indexer.Index(ctx, collection, toDomainRecord(rec), entry.fields, entry.opts)
}

// Unindex removes one record from the index by id without touching the
// primary store (soft delete). Removing an absent document succeeds.
func (m *Mirror) Unindex(ctx context.Context, collection, id string) error {
	entry := m.entryFor(collection, Schema{})
	return m.indexer.Unindex(ctx, collection, &domain.Record{ID: id}, entry.opts)
}

// Cursor streams records for resynchronization: a finite, single-pass
// sequence ending with io.EOF.
type Cursor interface {
	Next(ctx context.Context) (*Record, error)
}

// Resync asynchronously (re)populates the collection's index from every
// record the cursor yields and returns the tracking job.
func (m *Mirror) Resync(ctx context.Context, collection string, cur Cursor, schema Schema) *Job {
	entry := m.entryFor(collection, schema)
	job := m.engine.Resync(ctx, collection, cursorAdapter{inner: cur}, entry.fields, entry.opts)
	return &Job{inner: job}
}

// Search fans the query out across the resolved target indices and returns
// the normalized result.
func (m *Mirror) Search(ctx context.Context, q SearchQuery, opts Options) (*SearchResult, error) {
	result, err := m.gateway.Search(ctx, domain.SearchQuery{
		Collections: q.Collections,
		Body:        q.Body,
	}, toDomainOptions(opts))
	if err != nil {
		return nil, err
	}
	return fromDomainResult(result), nil
}

// Close waits for in-flight fire-and-forget operations to settle.
func (m *Mirror) Close() {
	m.wg.Wait()
}

// entryFor returns the registered entry for the collection, falling back
// to a selection computed from the event's schema for unregistered ones.
func (m *Mirror) entryFor(collection string, schema Schema) collectionEntry {
	m.mu.RLock()
	entry, ok := m.collections[collection]
	m.mu.RUnlock()
	if ok {
		return entry
	}
	return collectionEntry{fields: toDomainSchema(schema).IndexedFields()}
}

type enricherAdapter struct {
	inner Enricher
}

func (a enricherAdapter) Enrich(ctx context.Context, collection string, body map[string]any) error {
	return a.inner.Enrich(ctx, collection, body)
}

type cursorAdapter struct {
	inner Cursor
}

func (a cursorAdapter) Next(ctx context.Context) (*domain.Record, error) {
	rec, err := a.inner.Next(ctx)
	if err != nil {
		return nil, err
	}
	return toDomainRecord(*rec), nil
}
