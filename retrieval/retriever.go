package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// DefaultTopK is used when Retrieve is called with topK <= 0.
const DefaultTopK = 5

// RewriteFunc transforms a question before it is embedded.
type RewriteFunc func(ctx context.Context, question string) string

// Retriever finds the chunks most relevant to a question.
type Retriever struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	rewrite  RewriteFunc
	monitor  Monitor
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// WithRewrite installs a query rewriting hook. Nil restores the identity.
func WithRewrite(fn RewriteFunc) Option {
	return func(r *Retriever) error {
		r.rewrite = fn
		return nil
	}
}

// WithMonitor installs a retrieval observer.
func WithMonitor(monitor Monitor) Option {
	return func(r *Retriever) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// NewRetriever creates a retriever over index.
func NewRetriever(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		index:    index,
		embedder: embedder,
		monitor:  &noopMonitor{},
		logger:   slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve embeds the question once and runs one index search. The order
// returned by the index is kept.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]core.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	r.monitor.Start(question)

	query := question
	if r.rewrite != nil {
		query = r.rewrite(ctx, question)
		if query != question {
			r.logger.Debug("question rewritten", "question", question, "query", query)
		}
	}

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for question", "question", question, "err", err)
		r.monitor.Failed(err)
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := r.index.Search(ctx, embedding, topK, nil)
	if err != nil {
		r.logger.Error("error searching index", "err", err)
		r.monitor.Failed(err)
		return nil, fmt.Errorf("searching index: %w", err)
	}

	r.monitor.Finish(results, time.Since(start))
	r.logger.Debug("retrieved", "question", question, "results", len(results))
	return results, nil
}
