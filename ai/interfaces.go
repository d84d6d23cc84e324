package ai

import (
	"context"

	"github.com/poiesic/docqa/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of the vectors produced. Zero when unknown.
	Dimension() int

	// MaxInputLength is the longest text, in runes, callers should submit.
	MaxInputLength() int

	// Available reports whether the backing service answers.
	Available(ctx context.Context) bool
}

// Generator produces text from prompts.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the completion for a single prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateStream delivers the completion in fragments to fn as they
	// arrive. The stream is finite and cannot be restarted. An error
	// returned by fn stops the stream.
	GenerateStream(ctx context.Context, prompt string, fn func(fragment string) error, opts ...GenerateOption) error

	// Chat returns the next assistant turn for a conversation.
	Chat(ctx context.Context, messages []core.Message, opts ...GenerateOption) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
