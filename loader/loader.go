package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
)

// Loader turns a path into documents.
type Loader interface {
	Load(ctx context.Context, path string) ([]core.Document, error)
}

// FileLoader reads text, markdown and JSON files from the local filesystem.
// Directories are walked recursively; files with unknown extensions inside a
// directory are skipped.
type FileLoader struct {
	kinds  map[string]core.Kind
	logger *slog.Logger
}

var _ Loader = (*FileLoader)(nil)

// Option configures a FileLoader.
type Option func(*FileLoader) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *FileLoader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger.With("component", "loader")
		return nil
	}
}

// WithExtension maps an additional file extension to a kind.
func WithExtension(ext string, kind core.Kind) Option {
	return func(l *FileLoader) error {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if ext == "" {
			return fmt.Errorf("%w: empty extension", ErrUnsupportedKind)
		}
		l.kinds[ext] = kind
		return nil
	}
}

// NewFileLoader creates a loader with the default extension table.
func NewFileLoader(opts ...Option) (*FileLoader, error) {
	l := &FileLoader{
		kinds: map[string]core.Kind{
			"txt":      core.KindText,
			"text":     core.KindText,
			"md":       core.KindMarkdown,
			"markdown": core.KindMarkdown,
			"json":     core.KindJSON,
		},
		logger: slog.Default().With("component", "loader"),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Supports reports whether path has a known extension.
func (l *FileLoader) Supports(path string) bool {
	_, ok := l.kindOf(path)
	return ok
}

func (l *FileLoader) kindOf(path string) (core.Kind, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	kind, ok := l.kinds[ext]
	return kind, ok
}

// Load reads a file or every supported file beneath a directory.
func (l *FileLoader) Load(ctx context.Context, path string) ([]core.Document, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if _, ok := l.kindOf(path); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, path)
		}
		return l.loadFile(path)
	}

	files, err := l.collect(ctx, path)
	if err != nil {
		return nil, err
	}
	var docs []core.Document
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := l.loadFile(file)
		if err != nil {
			l.logger.Warn("skipping file", "path", file, "err", err)
			continue
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// collect lists supported files beneath root in lexical order.
func (l *FileLoader) collect(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.Supports(path) {
			l.logger.Debug("unsupported file", "path", path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (l *FileLoader) loadFile(path string) ([]core.Document, error) {
	kind, _ := l.kindOf(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}

	var content string
	switch kind {
	case core.KindJSON:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, path)
		}
		content = strings.TrimSpace(normalizeNewlines(string(raw)))
	case core.KindMarkdown:
		content = collapseBlankLines(strings.TrimSpace(normalizeNewlines(string(raw))))
	default:
		content = strings.TrimSpace(normalizeNewlines(string(raw)))
	}
	if content == "" {
		l.logger.Debug("empty file", "path", path)
		return nil, nil
	}

	metadata := map[string]any{
		"type":      kind.String() + "_file",
		"source":    path,
		"filename":  filepath.Base(path),
		"file_type": strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		"size":      utf8.RuneCountInString(content),
	}
	return []core.Document{core.NewDocument(content, kind, path, metadata)}, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// collapseBlankLines reduces runs of blank lines to a single empty line.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	prevEmpty := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !prevEmpty {
				out = append(out, "")
			}
			prevEmpty = true
			continue
		}
		out = append(out, line)
		prevEmpty = false
	}
	return strings.Join(out, "\n")
}
