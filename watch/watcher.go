package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docqa/indexing"
)

// DefaultDebounce is how long events for a path are coalesced.
const DefaultDebounce = 500 * time.Millisecond

var ErrIndexerRequired = errors.New("indexer is required")

// Reindexer applies file changes to the index.
type Reindexer interface {
	ReindexPath(ctx context.Context, path string) indexing.Result
	RemovePath(ctx context.Context, path string) (int, error)
}

var _ Reindexer = (*indexing.Indexer)(nil)

type change struct {
	path    string
	removed bool
}

// Watcher re-indexes documents when files under the watched roots change.
type Watcher struct {
	indexer  Reindexer
	accept   func(path string) bool
	debounce time.Duration
	pool     *ants.Pool
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]change
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger.With("component", "watcher")
		return nil
	}
}

// WithDebounce sets how long events are coalesced before re-indexing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d > 0 {
			w.debounce = d
		}
		return nil
	}
}

// WithFilter restricts which files trigger re-indexing. By default only
// text, markdown and JSON files do.
func WithFilter(accept func(path string) bool) Option {
	return func(w *Watcher) error {
		if accept != nil {
			w.accept = accept
		}
		return nil
	}
}

// WithPoolSize sets how many files are re-indexed concurrently.
// Default is 1.
func WithPoolSize(size int) Option {
	return func(w *Watcher) error {
		pool, err := ants.NewPool(max(size, 1))
		if err != nil {
			return err
		}
		if w.pool != nil {
			w.pool.Release()
		}
		w.pool = pool
		return nil
	}
}

// New creates a watcher that sends changes to indexer.
func New(indexer Reindexer, opts ...Option) (*Watcher, error) {
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	w := &Watcher{
		indexer:  indexer,
		accept:   defaultAccept,
		debounce: DefaultDebounce,
		logger:   slog.Default().With("component", "watcher"),
		pending:  make(map[string]change),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			w.Release()
			return nil, err
		}
	}
	if w.pool == nil {
		pool, err := ants.NewPool(1)
		if err != nil {
			return nil, err
		}
		w.pool = pool
	}
	return w, nil
}

// Release frees the worker pool.
func (w *Watcher) Release() {
	if w.pool != nil {
		w.pool.Release()
	}
}

// Run watches roots recursively until ctx is cancelled. Work already
// scheduled is allowed to finish before Run returns.
func (w *Watcher) Run(ctx context.Context, roots ...string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range roots {
		if err := w.addTree(fsw, root); err != nil {
			return err
		}
	}
	w.logger.Info("watching for changes", "roots", roots)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) && !isHidden(ev.Name) {
				if err := w.addTree(fsw, ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "err", err)
				}
				continue
			}
			if c, ok := w.handleEvent(ev); ok {
				w.mu.Lock()
				w.pending[c.path] = c
				w.mu.Unlock()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		case <-ticker.C:
			w.flush(ctx, &wg)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, wg *sync.WaitGroup) {
	w.mu.Lock()
	changes := w.pending
	w.pending = make(map[string]change)
	w.mu.Unlock()

	for _, c := range changes {
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			w.apply(ctx, c)
		})
		if err != nil {
			wg.Done()
			w.logger.Error("failed to schedule re-index", "path", c.path, "err", err)
		}
	}
}

func (w *Watcher) apply(ctx context.Context, c change) {
	if c.removed {
		n, err := w.indexer.RemovePath(ctx, c.path)
		if err != nil {
			w.logger.Error("failed to remove document", "path", c.path, "err", err)
			return
		}
		w.logger.Info("document removed", "path", c.path, "chunks", n)
		return
	}
	res := w.indexer.ReindexPath(ctx, c.path)
	if !res.Success || res.DocumentsFailed > 0 {
		w.logger.Warn("re-index failed", "path", c.path, "message", res.Message)
		return
	}
	w.logger.Info("document re-indexed", "path", c.path, "chunks", res.DocumentsProcessed)
}

// handleEvent maps a filesystem event to a change. Directories, hidden
// files, unsupported extensions and chmod-only events are ignored.
func (w *Watcher) handleEvent(ev fsnotify.Event) (change, bool) {
	if isHidden(ev.Name) || !w.accept(ev.Name) {
		return change{}, false
	}
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		return change{path: ev.Name, removed: true}, true
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if isDir(ev.Name) {
			return change{}, false
		}
		return change{path: ev.Name}, true
	}
	return change{}, false
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func defaultAccept(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".json", ".txt", ".text":
		return true
	}
	return false
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
