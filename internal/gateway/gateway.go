// Package gateway fans search queries out across single, multiple, or
// prefix-namespaced indices and normalizes the engine's response envelope.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/registry"
)

// AllIndices is the engine's reserved "every index" sentinel.
const AllIndices = "_all"

// defaultQuery is sent when the caller supplies no query body.
var defaultQuery = json.RawMessage(`{"query":{"match_all":{}}}`)

// Transport executes one search request against a resolved target.
type Transport interface {
	Search(ctx context.Context, opts domain.ConnOptions, target string, query json.RawMessage) (json.RawMessage, error)
}

// Gateway builds and executes search requests.
type Gateway struct {
	transport Transport
	registry  *registry.Registry
	logger    *zap.Logger
}

// New creates a search gateway.
func New(transport Transport, reg *registry.Registry, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{transport: transport, registry: reg, logger: logger}
}

// ResolveTarget computes the comma-joined target set for a query.
// Precedence: prefix with collections prefixes each name; prefix alone
// targets the "prefix*" wildcard; collections alone pass through unchanged;
// neither targets the reserved all-indices sentinel.
func ResolveTarget(collections []string, prefix string) string {
	switch {
	case prefix != "" && len(collections) > 0:
		prefixed := make([]string, len(collections))
		for i, c := range collections {
			prefixed[i] = prefix + "-" + c
		}
		return strings.Join(prefixed, ",")
	case prefix != "":
		return prefix + "*"
	case len(collections) > 0:
		return strings.Join(collections, ",")
	default:
		return AllIndices
	}
}

// Search resolves the target set from the query and the merged connection
// options, executes one request, and returns the normalized result.
func (g *Gateway) Search(
	ctx context.Context, q domain.SearchQuery, opts domain.ConnOptions,
) (*domain.SearchResult, error) {
	resolved, err := g.registry.Resolve("", opts)
	if err != nil {
		return nil, err
	}

	target := ResolveTarget(q.Collections, resolved.Prefix)
	body := q.Body
	if len(body) == 0 {
		body = defaultQuery
	}

	raw, err := g.transport.Search(ctx, resolved, target, body)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", target, err)
	}

	result, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", target, err)
	}

	g.logger.Debug("search executed",
		zap.String("target", target),
		zap.Int64("total", result.Total),
		zap.Int("hits", len(result.Hits)),
	)
	return result, nil
}

// envelope mirrors the engine-native response shape.
type envelope struct {
	Hits struct {
		Total int64 `json:"total"`
		Hits  []struct {
			Index  string          `json:"_index"`
			Type   string          `json:"_type"`
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func normalize(raw json.RawMessage) (*domain.SearchResult, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	hits := make([]domain.Hit, len(env.Hits.Hits))
	for i, h := range env.Hits.Hits {
		hits[i] = domain.Hit{
			Index:  h.Index,
			Type:   h.Type,
			ID:     h.ID,
			Score:  h.Score,
			Source: h.Source,
		}
	}
	return &domain.SearchResult{Total: env.Hits.Total, Hits: hits}, nil
}
