// Package embedding turns text into vectors with Vertex AI and caches the results.
package embedding

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the Vertex AI text embedding model.
	DefaultModel = "text-embedding-005"
	// DefaultLocation is the Vertex AI region.
	DefaultLocation = "us-central1"
	// TaskRetrievalDocument marks inputs as documents to be retrieved later.
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	// DefaultCacheSize bounds the number of cached vectors.
	DefaultCacheSize = 1000
)

// ErrNoEmbedding is returned when the service answers without a vector.
var ErrNoEmbedding = errors.New("embedding: response has no embedding")

// Embedder maps a text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// contentEmbedder is the part of *genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// VertexConfig configures a VertexEmbedder.
type VertexConfig struct {
	Project  string
	Location string
	Model    string
}

// VertexEmbedder embeds text with a Vertex AI model.
type VertexEmbedder struct {
	models contentEmbedder
	model  string
	logger *zap.Logger
}

// NewVertexEmbedder creates a client using application default credentials.
func NewVertexEmbedder(ctx context.Context, cfg VertexConfig, logger *zap.Logger) (*VertexEmbedder, error) {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: create client: %w", err)
	}
	return newVertexEmbedder(client.Models, cfg.Model, logger), nil
}

func newVertexEmbedder(models contentEmbedder, model string, logger *zap.Logger) *VertexEmbedder {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VertexEmbedder{models: models, model: model, logger: logger}
}

// Embed returns the document embedding of text.
func (e *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: TaskRetrievalDocument,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: embed with %s: %w", e.model, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrNoEmbedding
	}
	values := resp.Embeddings[0].Values
	e.logger.Debug("text embedded", zap.String("model", e.model), zap.Int("dim", len(values)))
	return values, nil
}

// Cache memoizes an Embedder by exact text. Failed calls are not cached.
type Cache struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCache wraps next with an LRU of size entries. A non-positive size uses
// DefaultCacheSize.
func NewCache(next Embedder, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding: create cache: %w", err)
	}
	return &Cache{next: next, cache: c}, nil
}

// Embed returns a cached vector or asks the wrapped Embedder.
// The returned slice is a copy.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, clone(v))
	return v, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.cache.Len()
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
