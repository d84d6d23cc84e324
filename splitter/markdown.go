package splitter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
)

var (
	headerPattern    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n`)
)

// Markdown split methods recorded under the markdown_method metadata key.
const (
	MethodHeader    = "header_split"
	MethodParagraph = "paragraph_split"
	MethodCharacter = "character_split"
)

// MarkdownSplitter splits Markdown on header boundaries. Oversized sections
// are regrouped on paragraph boundaries, and oversized paragraphs fall back
// to character windows.
type MarkdownSplitter struct{}

var _ Splitter = (*MarkdownSplitter)(nil)

// NewMarkdownSplitter creates a Markdown splitter.
func NewMarkdownSplitter() *MarkdownSplitter {
	return &MarkdownSplitter{}
}

type section struct {
	level int
	title string
	body  string
}

// Split implements Splitter. Header lines are removed from chunk bodies and
// carried as header_level and header_text metadata.
func (m *MarkdownSplitter) Split(doc core.Document, cfg core.SplitConfig) ([]core.DocumentChunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := newChunkBuilder(doc, cfg)
	loc := &locator{text: doc.Content}

	for _, sec := range splitSections(doc.Content) {
		meta := map[string]any{}
		if sec.level > 0 {
			meta["header_level"] = sec.level
			meta["header_text"] = sec.title
		}

		if utf8.RuneCountInString(sec.body) <= cfg.ChunkSize {
			b.add(sec.body, loc.find(sec.body), 0, withMethod(meta, MethodHeader))
			continue
		}
		m.splitSection(b, loc, sec.body, cfg, meta)
	}

	return b.result(), nil
}

// splitSection groups paragraphs while the joined text fits in a chunk.
func (m *MarkdownSplitter) splitSection(b *chunkBuilder, loc *locator, body string, cfg core.SplitConfig, meta map[string]any) {
	var current string
	flush := func() {
		if current != "" {
			b.add(current, loc.find(firstParagraph(current)), 0, withMethod(meta, MethodParagraph))
			current = ""
		}
	}

	for _, p := range paragraphPattern.Split(body, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if utf8.RuneCountInString(p) > cfg.ChunkSize {
			flush()
			appendWindows(b, []rune(p), loc.find(p), cfg, withMethod(meta, MethodCharacter))
			continue
		}

		candidate := p
		if current != "" {
			candidate = current + "\n\n" + p
		}
		if utf8.RuneCountInString(candidate) <= cfg.ChunkSize {
			current = candidate
			continue
		}
		flush()
		current = p
	}
	flush()
}

// splitSections splits text at header lines. Content before the first
// header forms a section with level 0.
func splitSections(text string) []section {
	var sections []section
	var lines []string
	current := section{}

	emit := func() {
		body := strings.TrimSpace(strings.Join(lines, "\n"))
		if body != "" {
			current.body = body
			sections = append(sections, current)
		}
		lines = lines[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		match := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			lines = append(lines, line)
			continue
		}
		emit()
		current = section{level: len(match[1]), title: strings.TrimSpace(match[2])}
	}
	emit()

	return sections
}

func withMethod(meta map[string]any, method string) map[string]any {
	out := core.CloneMetadata(meta)
	out["markdown_method"] = method
	return out
}

func firstParagraph(s string) string {
	if i := strings.Index(s, "\n\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// locator resolves rune offsets of pieces within the source text, scanning
// forward from the last match.
type locator struct {
	text   string
	cursor int
}

func (l *locator) find(piece string) int {
	idx := strings.Index(l.text[l.cursor:], piece)
	if idx < 0 {
		return utf8.RuneCountInString(l.text[:l.cursor])
	}
	l.cursor += idx
	return utf8.RuneCountInString(l.text[:l.cursor])
}
