// Package enrich optionally attaches embedding vectors to document bodies
// before they are written, so the search engine can serve vector queries
// next to full-text ones. Disabled unless an API key is configured.
package enrich

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// EmbeddingField is the body key the enricher writes the vector under.
const EmbeddingField = "_embedding"

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int

	// Fields lists the document fields whose string values are embedded,
	// concatenated in order. Fields absent from a body are skipped.
	Fields []string

	Logger *zap.Logger
}

// Embedder enriches bodies via an OpenAI-compatible embeddings API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	fields     []string
	logger     *zap.Logger
}

// New creates an embedding enricher.
func New(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		fields:     cfg.Fields,
		logger:     logger,
	}
}

// Enrich embeds the configured text fields and stores the vector in the
// body. A body with none of the configured fields is left untouched.
func (e *Embedder) Enrich(ctx context.Context, collection string, body map[string]any) error {
	text := e.collectText(body)
	if text == "" {
		return nil
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return fmt.Errorf("embed %s document: %w", collection, err)
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("embed %s document: empty embedding response", collection)
	}

	body[EmbeddingField] = resp.Data[0].Embedding
	return nil
}

// HealthCheck verifies provider availability via ListModels.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) collectText(body map[string]any) string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		if v, ok := body[f].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}
