package splitter

import (
	"unicode"

	"github.com/poiesic/docqa/core"
)

// WindowSplitter cuts text into fixed-size rune windows with overlap.
// It is the splitter for plain text and the fallback for other kinds.
type WindowSplitter struct{}

var _ Splitter = (*WindowSplitter)(nil)

// NewWindowSplitter creates a character window splitter.
func NewWindowSplitter() *WindowSplitter {
	return &WindowSplitter{}
}

// Split walks the content in windows of cfg.ChunkSize runes. Consecutive
// windows share cfg.ChunkOverlap runes. A window other than the last ends
// after trailing whitespace when one is available in its second half.
func (w *WindowSplitter) Split(doc core.Document, cfg core.SplitConfig) ([]core.DocumentChunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := newChunkBuilder(doc, cfg)
	appendWindows(b, []rune(doc.Content), 0, cfg, map[string]any{"split_method": "character_window"})
	return b.result(), nil
}

// appendWindows adds one chunk per window of text. base is the rune offset
// of text within the parent document.
func appendWindows(b *chunkBuilder, text []rune, base int, cfg core.SplitConfig, extra map[string]any) {
	prevEnd := 0
	for i, s := range windowSpans(text, cfg.ChunkSize, cfg.ChunkOverlap) {
		overlap := 0
		if i > 0 {
			overlap = max(prevEnd-s.start, 0)
		}
		b.add(string(text[s.start:s.end]), base+s.start, overlap, extra)
		prevEnd = s.end
	}
}

type span struct {
	start, end int
}

// windowSpans computes window boundaries over text. The next window starts
// overlap runes before the previous end, or at the previous end when that
// would not advance.
func windowSpans(text []rune, size, overlap int) []span {
	var spans []span
	n := len(text)
	start := 0
	for start < n {
		end := min(start+size, n)
		if end < n {
			end = trailingWhitespace(text, start, end)
		}
		spans = append(spans, span{start: start, end: end})
		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// trailingWhitespace moves end back to just after the last whitespace rune in
// the second half of [start, end). It returns end unchanged if there is none.
func trailingWhitespace(text []rune, start, end int) int {
	lower := start + (end-start)/2
	for i := end; i > lower; i-- {
		if unicode.IsSpace(text[i-1]) {
			return i
		}
	}
	return end
}
