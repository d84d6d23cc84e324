package splitter

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
)

// Splitter partitions a document into ordered chunks.
// Implementations must be safe for concurrent use.
type Splitter interface {
	Split(doc core.Document, cfg core.SplitConfig) ([]core.DocumentChunk, error)
}

// Registry maps document kinds to splitters.
type Registry struct {
	mu        sync.RWMutex
	splitters map[core.Kind]Splitter
}

// NewRegistry returns a registry populated with the built-in splitters.
func NewRegistry() *Registry {
	window := NewWindowSplitter()
	return &Registry{
		splitters: map[core.Kind]Splitter{
			core.KindText:     window,
			core.KindMarkdown: NewMarkdownSplitter(),
			core.KindJSON:     NewJSONSplitter(),
		},
	}
}

// Register installs s for kind, replacing any previous entry.
func (r *Registry) Register(kind core.Kind, s Splitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.splitters[kind] = s
}

// Lookup returns the splitter registered for kind.
func (r *Registry) Lookup(kind core.Kind) (Splitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.splitters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSplitter, kind)
	}
	return s, nil
}

// Split validates cfg and dispatches doc to the splitter for its kind.
func (r *Registry) Split(doc core.Document, cfg core.SplitConfig) ([]core.DocumentChunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := r.Lookup(doc.Kind)
	if err != nil {
		return nil, err
	}
	return s.Split(doc, cfg)
}

// chunkBuilder accumulates chunks for one parent document.
type chunkBuilder struct {
	doc    core.Document
	cfg    core.SplitConfig
	chunks []core.DocumentChunk
}

func newChunkBuilder(doc core.Document, cfg core.SplitConfig) *chunkBuilder {
	return &chunkBuilder{doc: doc, cfg: cfg}
}

// add appends a chunk starting at rune offset start. Blank content is dropped.
// When StripWhitespace is set the offsets are moved inward with the trim.
func (b *chunkBuilder) add(content string, start, overlap int, extra map[string]any) {
	if b.cfg.StripWhitespace {
		trimmedLeft := strings.TrimLeftFunc(content, unicode.IsSpace)
		start += utf8.RuneCountInString(content) - utf8.RuneCountInString(trimmedLeft)
		content = strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	size := utf8.RuneCountInString(content)
	index := len(b.chunks)
	metadata := core.CloneMetadata(b.doc.Metadata)
	for k, v := range extra {
		metadata[k] = v
	}

	b.chunks = append(b.chunks, core.DocumentChunk{
		ChunkID:     core.ChunkID(b.doc.ID, index),
		ParentID:    b.doc.ID,
		Content:     content,
		Index:       index,
		StartOffset: start,
		EndOffset:   start + size,
		Size:        size,
		OverlapSize: min(overlap, size),
		Metadata:    metadata,
	})
}

func (b *chunkBuilder) result() []core.DocumentChunk {
	return b.chunks
}
