// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docqa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/ai/openai"
	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/conversation"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/indexing"
	"github.com/poiesic/docqa/loader"
	"github.com/poiesic/docqa/metrics"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/retrieval"
	"github.com/poiesic/docqa/splitter"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/poiesic/docqa/storage/pgvector"
	"github.com/poiesic/docqa/storage/qdrant"
	"github.com/poiesic/docqa/watch"
)

// Engine wires storage, AI services, indexing and question answering
// together from a config.Config.
type Engine struct {
	cfg         *config.Config
	backend     *badger.Backend
	index       storage.VectorIndex
	sessionRepo storage.SessionRepository
	provider    ai.AIProvider
	indexer     *indexing.Indexer
	sessions    *conversation.Store
	queries     *qa.Service
	recorder    *metrics.Recorder
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// WithProvider supplies the AI services instead of building an
// OpenAI-compatible provider from the config.
func WithProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithMetrics routes indexing, retrieval and query activity to r.
func WithMetrics(r *metrics.Recorder) EngineOption {
	return func(o *engineOptions) {
		o.recorder = r
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens storage and builds every service. Sessions are kept in
// the badger store at cfg.Storage.Path regardless of the vector backend.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.recorder == nil {
		options.recorder = metrics.NewRecorder()
	}

	e := &Engine{
		cfg:      cfg,
		recorder: options.recorder,
		logger:   options.logger.With("component", "engine"),
	}

	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.Path == "")
	if err != nil {
		return nil, err
	}
	e.backend = backend

	if e.sessionRepo, err = badger.NewSessionRepository(backend); err != nil {
		e.Close()
		return nil, err
	}
	if e.index, err = openIndex(ctx, cfg, backend, options.logger); err != nil {
		e.Close()
		return nil, err
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProvider(cfg.ProviderConfig()); err != nil {
			e.Close()
			return nil, err
		}
	}

	fileLoader, err := loader.NewFileLoader(loader.WithLogger(options.logger))
	if err != nil {
		e.Close()
		return nil, err
	}

	indexerOpts := []indexing.Option{
		indexing.WithLogger(options.logger),
		indexing.WithSelector(splitter.NewSelector(cfg.Splitting.Threshold)),
		indexing.WithSplitConfig(cfg.SplitConfig()),
		indexing.WithMonitor(e.recorder),
		indexing.WithEmbedRetry(cfg.Indexing.EmbedAttempts, cfg.Indexing.RetryDelay),
	}
	if cfg.Indexing.Workers > 0 {
		indexerOpts = append(indexerOpts, indexing.WithPoolSize(cfg.Indexing.Workers))
	}
	if e.indexer, err = indexing.NewIndexer(e.index, e.provider.Embedder(), fileLoader, indexerOpts...); err != nil {
		e.Close()
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(e.index, e.provider.Embedder(),
		retrieval.WithLogger(options.logger), retrieval.WithMonitor(e.recorder))
	if err != nil {
		e.Close()
		return nil, err
	}

	if e.sessions, err = conversation.NewStore(
		conversation.WithLogger(options.logger),
		conversation.WithMaxMessages(cfg.Sessions.MaxMessages),
		conversation.WithRepository(e.sessionRepo),
	); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.recorder.RegisterSessionGauge(func() int {
		return e.sessions.ActiveSessionCount(cfg.Sessions.Timeout)
	}); err != nil {
		e.logger.Warn("session gauge not registered", "err", err)
	}

	if e.queries, err = qa.NewService(retriever, e.provider.Generator(),
		qa.WithLogger(options.logger),
		qa.WithSessions(e.sessions),
		qa.WithHistoryWindow(cfg.Retrieval.HistoryWindow),
		qa.WithMonitor(e.recorder),
	); err != nil {
		e.Close()
		return nil, err
	}

	e.logger.Info("engine ready", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)
	return e, nil
}

func openIndex(ctx context.Context, cfg *config.Config, backend *badger.Backend, logger *slog.Logger) (storage.VectorIndex, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger, "":
		return badger.NewVectorIndex(backend)
	case config.BackendPgvector:
		opts := []pgvector.Option{pgvector.WithLogger(logger)}
		if cfg.Storage.PostgresTable != "" {
			opts = append(opts, pgvector.WithTableName(cfg.Storage.PostgresTable))
		}
		return pgvector.New(ctx, cfg.Storage.PostgresDSN, opts...)
	case config.BackendQdrant:
		opts := []qdrant.Option{qdrant.WithLogger(logger)}
		if cfg.Storage.QdrantCollection != "" {
			opts = append(opts, qdrant.WithCollection(cfg.Storage.QdrantCollection))
		}
		return qdrant.New(cfg.Storage.QdrantURL, cfg.Storage.QdrantAPIKey, opts...)
	}
	return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Storage.Backend)
}

func (e *Engine) Close() error {
	if e.indexer != nil {
		e.indexer.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing vector index", "err", err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

// BuildIndex loads paths and indexes them.
func (e *Engine) BuildIndex(ctx context.Context, paths []string, forceRebuild bool) indexing.Result {
	return e.indexer.BuildIndex(ctx, paths, forceRebuild)
}

// Query answers a question.
func (e *Engine) Query(ctx context.Context, req qa.Request) qa.Result {
	return e.queries.Query(ctx, req)
}

// SaveDocument validates and indexes a single document. It reports whether
// the document was stored.
func (e *Engine) SaveDocument(ctx context.Context, doc core.Document) bool {
	if err := core.ValidateDocument(&doc); err != nil {
		e.logger.Warn("document rejected", "source", doc.Source, "err", err)
		return false
	}
	res := e.indexer.IndexDocuments(ctx, []core.Document{doc})
	return res.Success && res.DocumentsFailed == 0 && res.DocumentsProcessed > 0
}

func (e *Engine) Indexer() *indexing.Indexer {
	return e.indexer
}

func (e *Engine) Queries() *qa.Service {
	return e.queries
}

func (e *Engine) Sessions() *conversation.Store {
	return e.sessions
}

func (e *Engine) Index() storage.VectorIndex {
	return e.index
}

func (e *Engine) Metrics() *metrics.Recorder {
	return e.recorder
}

// NewSweeper returns a sweeper evicting sessions per the config.
func (e *Engine) NewSweeper() (*conversation.Sweeper, error) {
	return conversation.NewSweeper(e.sessions, e.cfg.Sessions.SweepInterval, e.cfg.Sessions.Timeout, e.logger)
}

// NewWatcher returns a watcher re-indexing changed files.
func (e *Engine) NewWatcher(opts ...watch.Option) (*watch.Watcher, error) {
	return watch.New(e.indexer, append([]watch.Option{watch.WithLogger(e.logger)}, opts...)...)
}
