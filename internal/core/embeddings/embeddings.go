// Package embeddings produces dense vectors for item text, used by the
// clustering engine for nearest-neighbor candidate search.
package embeddings

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

// Client turns text into an embedding vector.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type openAIClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// New creates the embedding client. Without an API key it returns a
// deterministic hash-based mock so local runs still cluster.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == "mock" {
		logger.Warn().Msg("no LLM API key configured, using mock embeddings")

		return NewMock(cfg.EmbeddingDims)
	}

	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	return &openAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.EmbeddingModel),
		dims:   cfg.EmbeddingDims,
	}
}

func (c *openAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, coreerrors.ErrInvalidInput
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, coreerrors.ErrNoEmbedding
	}

	vec := resp.Data[0].Embedding
	if c.dims > 0 && len(vec) != c.dims {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), c.dims)
	}

	return vec, nil
}

// CosineSimilarity computes cosine similarity of two vectors, 0 when
// either is empty or lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
