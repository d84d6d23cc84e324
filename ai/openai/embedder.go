package openai

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/docqa/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder       embeddings.Embedder
	limiter        *rate.Limiter
	maxInputLength int
	dimension      atomic.Int64
	logger         *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept "none" as the token
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		embedder:       embedder,
		limiter:        newLimiter(config.RequestsPerSecond),
		maxInputLength: config.MaxInputLength,
		logger:         slog.Default().With("component", "openai-embedder"),
	}
	e.dimension.Store(int64(config.EmbeddingDimension))
	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	if len(vectors) > 0 && e.dimension.Load() == 0 {
		e.dimension.Store(int64(len(vectors[0])))
	}

	return vectors, nil
}

// Dimension returns the configured dimension, or the length of the first
// vector seen when none was configured.
func (e *Embedder) Dimension() int {
	return int(e.dimension.Load())
}

// MaxInputLength returns the input cap in runes.
func (e *Embedder) MaxInputLength() int {
	return e.maxInputLength
}

// Available embeds a probe string.
func (e *Embedder) Available(ctx context.Context) bool {
	_, err := e.EmbedText(ctx, "ping")
	if err != nil {
		e.logger.Warn("embedding service unavailable", "err", err)
		return false
	}
	return true
}
