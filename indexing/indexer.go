package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/loader"
	"github.com/poiesic/docqa/splitter"
	"github.com/poiesic/docqa/storage"
)

// Result summarizes one indexing run.
type Result struct {
	Success bool
	// DocumentsProcessed is the number of chunks stored, not source documents.
	DocumentsProcessed int
	DocumentsFailed    int
	ProcessingTime     time.Duration
	Message            string
}

// Indexer turns files into embedded, searchable chunks.
// It is the only writer of the vector index while a build runs.
type Indexer struct {
	index       storage.VectorIndex
	embedder    ai.Embedder
	loader      loader.Loader
	selector    splitter.Selector
	registry    *splitter.Registry
	splitConfig core.SplitConfig
	loadPool    *ants.Pool
	monitor     Monitor
	retries     int
	retryDelay  time.Duration
	logger      *slog.Logger
	now         func() time.Time
	buildMu     sync.Mutex
	// sources maps a document source to the chunk ids stored for it by
	// this indexer. Guarded by buildMu.
	sources map[string][]string
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets how many paths are loaded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if ix.loadPool != nil {
			ix.loadPool.Release()
		}
		ix.loadPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "indexer")
		return nil
	}
}

// WithSelector replaces the split decision.
func WithSelector(selector splitter.Selector) Option {
	return func(ix *Indexer) error {
		ix.selector = selector
		return nil
	}
}

// WithRegistry replaces the kind to splitter table.
func WithRegistry(registry *splitter.Registry) Option {
	return func(ix *Indexer) error {
		if registry == nil {
			return ErrRegistryRequired
		}
		ix.registry = registry
		return nil
	}
}

// WithSplitConfig sets chunk size and overlap.
func WithSplitConfig(cfg core.SplitConfig) Option {
	return func(ix *Indexer) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ix.splitConfig = cfg
		return nil
	}
}

// WithMonitor installs an observer for per-document outcomes.
func WithMonitor(monitor Monitor) Option {
	return func(ix *Indexer) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		ix.monitor = monitor
		return nil
	}
}

// WithEmbedRetry retries failed embedding calls up to attempts times in
// total, doubling delay between tries. Default is a single attempt.
func WithEmbedRetry(attempts int, delay time.Duration) Option {
	return func(ix *Indexer) error {
		if attempts < 1 {
			attempts = 1
		}
		ix.retries = attempts
		ix.retryDelay = delay
		return nil
	}
}

// NewIndexer creates an indexer writing to index.
func NewIndexer(index storage.VectorIndex, embedder ai.Embedder, ld loader.Loader, opts ...Option) (*Indexer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if ld == nil {
		return nil, ErrLoaderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		index:       index,
		embedder:    embedder,
		loader:      ld,
		selector:    splitter.NewSelector(splitter.DefaultThreshold),
		registry:    splitter.NewRegistry(),
		splitConfig: core.DefaultSplitConfig(),
		loadPool:    pool,
		monitor:     &noopMonitor{},
		retries:     1,
		logger:      slog.Default().With("component", "indexer"),
		now:         time.Now,
		sources:     make(map[string][]string),
	}

	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}
	return ix, nil
}

// Release releases the loader pool. The indexer should not be used after.
func (ix *Indexer) Release() {
	if ix.loadPool != nil {
		ix.loadPool.Release()
	}
}

// BuildIndex loads every path and indexes the resulting documents.
// Paths that fail to load are logged and skipped. When forceRebuild is set
// the index is cleared first.
func (ix *Indexer) BuildIndex(ctx context.Context, paths []string, forceRebuild bool) Result {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	start := ix.now()
	ix.logger.Info("building index", "paths", len(paths), "force_rebuild", forceRebuild)

	if forceRebuild {
		if err := ix.index.Clear(ctx); err != nil {
			ix.logger.Error("failed to clear index", "err", err)
			return Result{
				Success:        false,
				ProcessingTime: ix.now().Sub(start),
				Message:        fmt.Sprintf("failed to clear index: %v", err),
			}
		}
		clear(ix.sources)
		ix.logger.Info("cleared existing index")
	}

	docs := ix.loadAll(ctx, paths)
	ix.logger.Info("documents loaded", "count", len(docs))
	if len(docs) == 0 {
		return Result{
			Success:        true,
			ProcessingTime: ix.now().Sub(start),
			Message:        "no documents found",
		}
	}
	return ix.indexAll(ctx, docs, start)
}

// IndexDocuments indexes already loaded documents.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []core.Document) Result {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	start := ix.now()
	if len(docs) == 0 {
		return Result{Success: true, Message: "no documents found"}
	}
	return ix.indexAll(ctx, docs, start)
}

// loadAll loads paths on the pool and returns documents in path order.
func (ix *Indexer) loadAll(ctx context.Context, paths []string) []core.Document {
	loaded := make([][]core.Document, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := ix.loadPool.Submit(func() {
			defer wg.Done()
			docs, err := ix.loader.Load(ctx, path)
			if err != nil {
				ix.logger.Warn("failed to load path", "path", path, "err", err)
				ix.monitor.DocumentFailed(path, StageLoad, err)
				return
			}
			loaded[i] = docs
		})
		if err != nil {
			wg.Done()
			ix.logger.Error("failed to schedule load", "path", path, "err", err)
			ix.monitor.DocumentFailed(path, StageLoad, err)
		}
	}
	wg.Wait()

	var docs []core.Document
	for _, d := range loaded {
		docs = append(docs, d...)
	}
	return docs
}

func (ix *Indexer) indexAll(ctx context.Context, docs []core.Document, start time.Time) Result {
	processed, failed := 0, 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			ix.logger.Warn("indexing cancelled", "err", err)
			break
		}
		docStart := ix.now()
		stored, err := ix.indexDocument(ctx, doc)
		if err != nil {
			failed++
			ix.logger.Error("failed to index document", "source", doc.Source, "err", err)
			continue
		}
		processed += len(stored)
		if doc.Source != "" {
			ix.sources[doc.Source] = append(ix.sources[doc.Source], stored...)
		}
		ix.monitor.DocumentIndexed(doc.Source, len(stored), ix.now().Sub(docStart))
		ix.logger.Info("indexed document", "source", doc.Source, "chunks", len(stored))
	}

	elapsed := ix.now().Sub(start)
	result := Result{
		Success:            ctx.Err() == nil,
		DocumentsProcessed: processed,
		DocumentsFailed:    failed,
		ProcessingTime:     elapsed,
		Message:            "index built",
	}
	if err := ctx.Err(); err != nil {
		result.Message = fmt.Sprintf("indexing cancelled: %v", err)
	}
	ix.logger.Info("index build finished", "chunks", processed, "failed", failed, "elapsed", elapsed)
	return result
}

// indexDocument splits, embeds and stores one document. The chunks of a
// document are stored all or nothing. A missing ID is derived from the
// source and content.
func (ix *Indexer) indexDocument(ctx context.Context, doc core.Document) ([]string, error) {
	if doc.ID == "" {
		doc.ID = core.DocumentID(doc.Source, doc.Content)
	}
	chunks, split := ix.chunk(doc)

	maxLen := ix.embedder.MaxInputLength()
	if maxLen <= 0 {
		maxLen = ai.DefaultMaxInputLength
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = ix.embeddingText(c, maxLen)
	}

	var vectors [][]float32
	err := retryWithBackoff(ctx, ix.logger, ix.retries, ix.retryDelay, func() error {
		var embedErr error
		vectors, embedErr = ix.embedder.EmbedTexts(ctx, texts)
		return embedErr
	})
	if err != nil {
		ix.monitor.DocumentFailed(doc.Source, StageEmbed, err)
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		err := fmt.Errorf("%w: %d vectors for %d chunks", ErrEmbeddingCount, len(vectors), len(chunks))
		ix.monitor.DocumentFailed(doc.Source, StageEmbed, err)
		return nil, err
	}

	indexedAt := ix.now().UTC().Format(time.RFC3339)
	stored := make([]string, 0, len(chunks))
	for i, c := range chunks {
		metadata := ix.chunkMetadata(doc, c, split, indexedAt)
		if err := ix.index.Upsert(ctx, c.ChunkID, c.Content, vectors[i], metadata); err != nil {
			ix.monitor.DocumentFailed(doc.Source, StageStore, err)
			if len(stored) > 0 {
				if delErr := ix.index.Delete(ctx, stored...); delErr != nil {
					ix.logger.Warn("failed to roll back partial document", "source", doc.Source, "err", delErr)
				}
			}
			return nil, fmt.Errorf("store failed for %s: %w", c.ChunkID, err)
		}
		stored = append(stored, c.ChunkID)
	}
	return stored, nil
}

// ReindexPath reloads path and replaces the chunks this indexer stored for
// it earlier. Chunks from before the indexer started are not tracked and
// stay in the index. When nothing could be indexed the old chunks are kept.
func (ix *Indexer) ReindexPath(ctx context.Context, path string) Result {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	start := ix.now()
	docs, err := ix.loader.Load(ctx, path)
	if err != nil {
		ix.monitor.DocumentFailed(path, StageLoad, err)
		return Result{
			Success:         false,
			DocumentsFailed: 1,
			ProcessingTime:  ix.now().Sub(start),
			Message:         fmt.Sprintf("failed to load %s: %v", path, err),
		}
	}

	previous := make(map[string][]string)
	for _, doc := range docs {
		if ids, ok := ix.sources[doc.Source]; ok {
			previous[doc.Source] = ids
			delete(ix.sources, doc.Source)
		}
	}

	result := Result{Success: true, Message: "no documents found"}
	if len(docs) > 0 {
		result = ix.indexAll(ctx, docs, start)
	}

	for source, old := range previous {
		current, ok := ix.sources[source]
		if !ok {
			ix.sources[source] = old
			continue
		}
		stale := staleIDs(old, current)
		if len(stale) == 0 {
			continue
		}
		if err := ix.index.Delete(ctx, stale...); err != nil {
			ix.logger.Warn("failed to delete replaced chunks", "source", source, "err", err)
			continue
		}
		ix.logger.Debug("deleted replaced chunks", "source", source, "count", len(stale))
	}
	result.ProcessingTime = ix.now().Sub(start)
	return result
}

// RemovePath deletes the chunks this indexer stored for path and returns
// how many were removed.
func (ix *Indexer) RemovePath(ctx context.Context, path string) (int, error) {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	ids, ok := ix.sources[path]
	if !ok {
		return 0, nil
	}
	if err := ix.index.Delete(ctx, ids...); err != nil {
		return 0, fmt.Errorf("failed to delete chunks for %s: %w", path, err)
	}
	delete(ix.sources, path)
	ix.logger.Info("removed document", "source", path, "chunks", len(ids))
	return len(ids), nil
}

func staleIDs(old, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}
	var stale []string
	for _, id := range old {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

// chunk decides whether doc needs splitting and falls back to one unsplit
// chunk when it doesn't, or when the splitter fails. The boolean reports
// whether the chunks came out of a splitter.
func (ix *Indexer) chunk(doc core.Document) ([]core.DocumentChunk, bool) {
	if !ix.selector.ShouldSplit(doc) {
		return []core.DocumentChunk{wholeChunk(doc, nil)}, false
	}
	chunks, err := ix.registry.Split(doc, ix.splitConfig)
	if err != nil {
		ix.logger.Warn("split failed, indexing whole document", "source", doc.Source, "err", err)
		ix.monitor.DocumentFailed(doc.Source, StageSplit, err)
		return []core.DocumentChunk{wholeChunk(doc, map[string]any{"split_error": err.Error()})}, false
	}
	if len(chunks) == 0 {
		return []core.DocumentChunk{wholeChunk(doc, nil)}, false
	}
	return chunks, true
}

func (ix *Indexer) embeddingText(c core.DocumentChunk, maxLen int) string {
	text := c.Content
	if n := utf8.RuneCountInString(text); n > maxLen {
		ix.logger.Warn("chunk exceeds embedding input limit, truncating", "chunk_id", c.ChunkID, "length", n, "limit", maxLen)
		text = string([]rune(text)[:maxLen])
	}
	if text == "" {
		text = " "
	}
	return text
}

// chunkMetadata merges the chunk's metadata with lineage fields.
func (ix *Indexer) chunkMetadata(doc core.Document, c core.DocumentChunk, isChunk bool, indexedAt string) map[string]any {
	metadata := core.CloneMetadata(c.Metadata)

	filename, _ := doc.Metadata["filename"].(string)
	if filename == "" && doc.Source != "" {
		filename = filepath.Base(doc.Source)
	}
	fileType, _ := doc.Metadata["file_type"].(string)
	if fileType == "" {
		fileType = doc.Kind.String()
	}

	metadata["source"] = doc.Source
	metadata["filename"] = filename
	metadata["file_type"] = fileType
	metadata["parent_id"] = doc.ID
	metadata["chunk_id"] = c.ChunkID
	metadata["chunk_index"] = c.Index
	metadata["start_position"] = c.StartOffset
	metadata["end_position"] = c.EndOffset
	metadata["chunk_size"] = c.Size
	metadata["is_chunk"] = isChunk
	metadata["indexed_at"] = indexedAt
	return metadata
}

// wholeChunk wraps an entire document as chunk 0.
func wholeChunk(doc core.Document, extra map[string]any) core.DocumentChunk {
	size := utf8.RuneCountInString(doc.Content)
	metadata := core.CloneMetadata(doc.Metadata)
	for k, v := range extra {
		metadata[k] = v
	}
	return core.DocumentChunk{
		ChunkID:     core.ChunkID(doc.ID, 0),
		ParentID:    doc.ID,
		Content:     doc.Content,
		Index:       0,
		StartOffset: 0,
		EndOffset:   size,
		Size:        size,
		Metadata:    metadata,
	}
}
