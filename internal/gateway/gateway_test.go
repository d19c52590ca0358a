package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/registry"
)

type mockTransport struct {
	searchFunc func(ctx context.Context, opts domain.ConnOptions, target string, query json.RawMessage) (json.RawMessage, error)

	gotTarget string
	gotQuery  json.RawMessage
}

func (m *mockTransport) Search(
	ctx context.Context, opts domain.ConnOptions, target string, query json.RawMessage,
) (json.RawMessage, error) {
	m.gotTarget = target
	m.gotQuery = query
	if m.searchFunc != nil {
		return m.searchFunc(ctx, opts, target, query)
	}
	return json.RawMessage(`{"hits":{"total":0,"hits":[]}}`), nil
}

func configuredRegistry() *registry.Registry {
	r := registry.New()
	r.Configure(domain.ConnOptions{Host: "localhost", Port: 9200})
	return r
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name        string
		collections []string
		prefix      string
		want        string
	}{
		{"prefix and collections", []string{"users", "orders"}, "qa", "qa-users,qa-orders"},
		{"prefix only", nil, "qa", "qa*"},
		{"collections only", []string{"users", "Orders"}, "", "users,Orders"},
		{"single collection", []string{"users"}, "", "users"},
		{"neither", nil, "", "_all"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveTarget(tc.collections, tc.prefix); got != tc.want {
				t.Errorf("ResolveTarget(%v, %q) = %q, want %q", tc.collections, tc.prefix, got, tc.want)
			}
		})
	}
}

func TestSearch_PrefixFromDefaults(t *testing.T) {
	transport := &mockTransport{}
	r := registry.New()
	r.Configure(domain.ConnOptions{Host: "localhost", Port: 9200, Prefix: "qa"})
	g := New(transport, r, nil)

	_, err := g.Search(context.Background(), domain.SearchQuery{Collections: []string{"users"}}, domain.ConnOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.gotTarget != "qa-users" {
		t.Errorf("expected configured prefix to shape the target, got %q", transport.gotTarget)
	}
}

func TestSearch_DefaultQueryBody(t *testing.T) {
	transport := &mockTransport{}
	g := New(transport, configuredRegistry(), nil)

	_, err := g.Search(context.Background(), domain.SearchQuery{}, domain.ConnOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(transport.gotQuery) != `{"query":{"match_all":{}}}` {
		t.Errorf("expected match-all default body, got %s", transport.gotQuery)
	}
	if transport.gotTarget != AllIndices {
		t.Errorf("expected all-indices target, got %q", transport.gotTarget)
	}
}

func TestSearch_NormalizesEnvelope(t *testing.T) {
	transport := &mockTransport{
		searchFunc: func(context.Context, domain.ConnOptions, string, json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{
				"took": 3,
				"hits": {
					"total": 2,
					"hits": [
						{"_index":"users","_type":"users","_id":"u1","_score":1.5,"_source":{"name":"Ada"}},
						{"_index":"users","_type":"users","_id":"u2","_score":0.9,"_source":{"name":"Grace"}}
					]
				}
			}`), nil
		},
	}
	g := New(transport, configuredRegistry(), nil)

	result, err := g.Search(context.Background(), domain.SearchQuery{Collections: []string{"users"}}, domain.ConnOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 2 || len(result.Hits) != 2 {
		t.Fatalf("unexpected result: total=%d hits=%d", result.Total, len(result.Hits))
	}
	h := result.Hits[0]
	if h.Index != "users" || h.ID != "u1" || h.Score != 1.5 {
		t.Errorf("unexpected hit: %+v", h)
	}
	var src map[string]any
	if err := json.Unmarshal(h.Source, &src); err != nil || src["name"] != "Ada" {
		t.Errorf("expected raw source passthrough, got %s", h.Source)
	}
}

func TestSearch_MissingConfiguration(t *testing.T) {
	g := New(&mockTransport{}, registry.New(), nil)

	_, err := g.Search(context.Background(), domain.SearchQuery{}, domain.ConnOptions{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestSearch_TransportFailure(t *testing.T) {
	transport := &mockTransport{
		searchFunc: func(context.Context, domain.ConnOptions, string, json.RawMessage) (json.RawMessage, error) {
			return nil, &domain.StatusError{Code: 400}
		},
	}
	g := New(transport, configuredRegistry(), nil)

	_, err := g.Search(context.Background(), domain.SearchQuery{}, domain.ConnOptions{})
	if !errors.Is(err, domain.ErrClientRequest) {
		t.Errorf("expected client-request classification, got %v", err)
	}
}
