// Package es is the HTTP transport toward the search engine. It owns the
// wire surface (document PUT/DELETE, _search, ping), retry classification,
// and request metrics; everything above it works with normalized types.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/esmirror/esmirror/internal/backoff"
	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/metrics"
)

// Doer executes a single HTTP request. *http.Client satisfies it; tests and
// embedders of custom transports supply their own.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Compile-time check that the default executor fits.
var _ Doer = (*http.Client)(nil)

const defaultRequestTimeout = 30 * time.Second

// Client talks to one search engine deployment. Safe for concurrent use;
// no per-index state is retained between calls, all addressing travels
// with the request via ConnOptions.
type Client struct {
	doer   Doer
	retry  backoff.Config
	logger *zap.Logger
}

// New creates a transport client. A nil doer falls back to a default
// http.Client with a request timeout.
func New(doer Doer, retry backoff.Config, logger *zap.Logger) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{doer: doer, retry: retry, logger: logger}
}

// PutDocument issues an idempotent create-or-replace write keyed by the
// document id: PUT {host}:{port}/{index}/{type}/{id} with the body as JSON.
func (c *Client) PutDocument(
	ctx context.Context, opts domain.ConnOptions, id string, body map[string]any,
) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", id, err)
	}
	url := fmt.Sprintf("%s/%s/%s/%s", opts.BaseURL(), opts.Index, opts.Type, id)
	return c.execute(ctx, "index", http.MethodPut, url, payload, false)
}

// DeleteDocument issues an idempotent delete by document id:
// DELETE {host}:{port}/{index}/{type}/{id}. Deleting an already-absent
// document reports success.
func (c *Client) DeleteDocument(
	ctx context.Context, opts domain.ConnOptions, id string,
) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s/%s/%s", opts.BaseURL(), opts.Index, opts.Type, id)
	return c.execute(ctx, "unindex", http.MethodDelete, url, nil, true)
}

// Search issues one query against the resolved target set:
// GET {host}:{port}/{target}/_search with a JSON query body.
func (c *Client) Search(
	ctx context.Context, opts domain.ConnOptions, target string, query json.RawMessage,
) (json.RawMessage, error) {
	url := fmt.Sprintf(
		"%s/%s/_search?search_type=dfs_query_then_fetch&preference=_primary_first",
		opts.BaseURL(), target,
	)
	return c.execute(ctx, "search", http.MethodGet, url, query, false)
}

// Ping checks engine liveness with a bare GET on the root endpoint.
func (c *Client) Ping(ctx context.Context, opts domain.ConnOptions) error {
	cfg := c.retry
	cfg.MaxAttempts = 1 // health probes report, they don't wait
	_, err := c.executeWith(ctx, cfg, "ping", http.MethodGet, opts.BaseURL()+"/", nil, false)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (c *Client) execute(
	ctx context.Context, op, method, url string, payload []byte, absentOK bool,
) (json.RawMessage, error) {
	return c.executeWith(ctx, c.retry, op, method, url, payload, absentOK)
}

// executeWith wraps exactly one logical HTTP call in the retry policy.
// Connection failures, timeouts and 5xx responses are transient; 4xx fails
// immediately. absentOK turns a 404 into a success, which is what makes
// delete-by-id an idempotent no-op.
func (c *Client) executeWith(
	ctx context.Context, retry backoff.Config,
	op, method, url string, payload []byte, absentOK bool,
) (json.RawMessage, error) {
	retry.OnRetry = func(attempt int, err error) {
		metrics.RequestRetriesTotal.WithLabelValues(op).Inc()
		c.logger.Debug("retrying search engine request",
			zap.String("op", op),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	start := time.Now()
	body, err := backoff.RetryWithResult(ctx, retry, func() (json.RawMessage, error) {
		return c.doOnce(ctx, method, url, payload, absentOK)
	})
	metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, url, err)
	}
	return body, nil
}

func (c *Client) doOnce(
	ctx context.Context, method, url string, payload []byte, absentOK bool,
) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Cause: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound && absentOK:
		return body, nil
	case resp.StatusCode >= 500:
		return nil, &domain.StatusError{Code: resp.StatusCode, Body: body}
	default:
		return nil, backoff.Permanent(&domain.StatusError{Code: resp.StatusCode, Body: body})
	}
}
