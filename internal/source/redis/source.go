// Package redis adapts a Redis-backed primary store as the record source
// for resynchronization. Records are JSON objects stored one per key as
// {keyPrefix}{collection}:{id}; a SCAN-based cursor streams them as a
// finite, single-pass sequence.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/esmirror/esmirror/internal/domain"
)

const scanBatch = 256

// Config holds connection parameters for the source.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Source streams primary records out of Redis.
type Source struct {
	client    rueidis.Client
	keyPrefix string
}

// NewSource connects to the primary store.
func NewSource(cfg Config) (*Source, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create source client: %w", err)
	}
	return &Source{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// Ping checks connectivity.
func (s *Source) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping source: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Source) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for source: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Source) Close() {
	s.client.Close()
}

// Records returns a fresh single-pass cursor over every record in the
// collection. Not restartable; create a new cursor for each pass.
func (s *Source) Records(collection string) *Cursor {
	prefix := s.keyPrefix + collection + ":"
	return &Cursor{
		source: s,
		prefix: prefix,
	}
}

// Cursor is a lazy SCAN-backed record stream.
type Cursor struct {
	source *Source
	prefix string

	cursor   uint64
	started  bool
	drained  bool
	buffered []string
}

// Next returns the next record, or io.EOF after the last one. A SCAN or
// GET failure surfaces as an error and ends the stream.
func (c *Cursor) Next(ctx context.Context) (*domain.Record, error) {
	for {
		if len(c.buffered) == 0 {
			if err := c.fill(ctx); err != nil {
				return nil, err
			}
			if len(c.buffered) == 0 {
				return nil, io.EOF
			}
		}

		key := c.buffered[0]
		c.buffered = c.buffered[1:]

		rec, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			// Key expired between SCAN and GET; skip.
			continue
		}
		return rec, nil
	}
}

// fill advances SCAN until it buffers at least one key or the keyspace is
// exhausted.
func (c *Cursor) fill(ctx context.Context) error {
	for len(c.buffered) == 0 {
		if c.drained || (c.started && c.cursor == 0) {
			c.drained = true
			return nil
		}
		c.started = true

		cmd := c.source.client.B().Scan().
			Cursor(c.cursor).
			Match(c.prefix + "*").
			Count(scanBatch).
			Build()
		entry, err := c.source.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return fmt.Errorf("scan %s: %w", c.prefix, err)
		}
		c.cursor = entry.Cursor
		c.buffered = entry.Elements
	}
	return nil
}

func (c *Cursor) fetch(ctx context.Context, key string) (*domain.Record, error) {
	cmd := c.source.client.B().Get().Key(key).Build()
	data, err := c.source.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &domain.Record{
		ID:     strings.TrimPrefix(key, c.prefix),
		Fields: fields,
	}, nil
}
