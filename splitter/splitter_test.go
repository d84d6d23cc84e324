package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(kind core.Kind, content string) core.Document {
	return core.NewDocument(content, kind, "test", map[string]any{"filename": "test"})
}

// requireChunkInvariants checks size, offset and index invariants.
func requireChunkInvariants(t *testing.T, chunks []core.DocumentChunk, limit int) {
	t.Helper()
	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "chunk index")
		assert.Equal(t, utf8.RuneCountInString(c.Content), c.Size, "chunk %d size", i)
		assert.Equal(t, c.Size, c.EndOffset-c.StartOffset, "chunk %d offsets", i)
		assert.LessOrEqual(t, c.Size, limit, "chunk %d exceeds limit", i)
		assert.Equal(t, core.ChunkID(c.ParentID, i), c.ChunkID)
		assert.Equal(t, "test", c.Metadata["filename"], "parent metadata carried")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("built-in kinds", func(t *testing.T) {
		s, err := r.Lookup(core.KindText)
		require.NoError(t, err)
		assert.IsType(t, &WindowSplitter{}, s)

		s, err = r.Lookup(core.KindMarkdown)
		require.NoError(t, err)
		assert.IsType(t, &MarkdownSplitter{}, s)

		s, err = r.Lookup(core.KindJSON)
		require.NoError(t, err)
		assert.IsType(t, &JSONSplitter{}, s)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.Lookup(core.Kind(42))
		require.ErrorIs(t, err, ErrNoSplitter)
	})

	t.Run("register overrides", func(t *testing.T) {
		custom := NewRegistry()
		custom.Register(core.KindMarkdown, NewWindowSplitter())
		s, err := custom.Lookup(core.KindMarkdown)
		require.NoError(t, err)
		assert.IsType(t, &WindowSplitter{}, s)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := r.Split(testDocument(core.KindText, "abc"), core.SplitConfig{ChunkSize: 4, ChunkOverlap: 4})
		require.ErrorIs(t, err, core.ErrInvalidSplitConfig)
	})

	t.Run("dispatches by kind", func(t *testing.T) {
		chunks, err := r.Split(testDocument(core.KindMarkdown, "# Title\nbody"), core.DefaultSplitConfig())
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, MethodHeader, chunks[0].Metadata["markdown_method"])
	})
}

func TestWindowSplitter(t *testing.T) {
	s := NewWindowSplitter()

	t.Run("overlapping windows", func(t *testing.T) {
		chunks, err := s.Split(testDocument(core.KindText, "abcdefghij"), core.SplitConfig{ChunkSize: 4, ChunkOverlap: 1})
		require.NoError(t, err)

		contents := make([]string, len(chunks))
		for i, c := range chunks {
			contents[i] = c.Content
		}
		assert.Equal(t, []string{"abcd", "defg", "ghij"}, contents)
		assert.Equal(t, 0, chunks[0].OverlapSize)
		assert.Equal(t, 1, chunks[1].OverlapSize)
		assert.Equal(t, 3, chunks[1].StartOffset)
		requireChunkInvariants(t, chunks, 4)
	})

	t.Run("prefers trailing whitespace", func(t *testing.T) {
		chunks, err := s.Split(testDocument(core.KindText, "hello world foo bar"), core.SplitConfig{ChunkSize: 8})
		require.NoError(t, err)

		contents := make([]string, len(chunks))
		for i, c := range chunks {
			contents[i] = c.Content
		}
		assert.Equal(t, []string{"hello ", "world ", "foo bar"}, contents)
	})

	t.Run("strip whitespace keeps offsets consistent", func(t *testing.T) {
		cfg := core.SplitConfig{ChunkSize: 8, StripWhitespace: true}
		chunks, err := s.Split(testDocument(core.KindText, "hello world foo bar"), cfg)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "hello", chunks[0].Content)
		assert.Equal(t, 6, chunks[1].StartOffset)
		requireChunkInvariants(t, chunks, 8)
	})

	t.Run("strip whitespace handles unicode spaces", func(t *testing.T) {
		cfg := core.SplitConfig{ChunkSize: 10, StripWhitespace: true}
		chunks, err := s.Split(testDocument(core.KindText, "\u3000\u00a0你好世界\u3000"), cfg)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "你好世界", chunks[0].Content)
		assert.Equal(t, 2, chunks[0].StartOffset)
		assert.Equal(t, 6, chunks[0].EndOffset)
		requireChunkInvariants(t, chunks, 10)
	})

	t.Run("idempotent", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum dolor sit amet ", 80)
		cfg := core.SplitConfig{ChunkSize: 97, ChunkOverlap: 13}
		first, err := s.Split(testDocument(core.KindText, text), cfg)
		require.NoError(t, err)
		second, err := s.Split(testDocument(core.KindText, text), cfg)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("bounded for many configs", func(t *testing.T) {
		text := strings.Repeat("多语言 text with mixed 字符 and spaces. ", 60)
		for _, cfg := range []core.SplitConfig{
			{ChunkSize: 1},
			{ChunkSize: 2, ChunkOverlap: 1},
			{ChunkSize: 10, ChunkOverlap: 9},
			{ChunkSize: 50, ChunkOverlap: 0},
			{ChunkSize: 333, ChunkOverlap: 100},
		} {
			chunks, err := s.Split(testDocument(core.KindText, text), cfg)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)
			requireChunkInvariants(t, chunks, cfg.ChunkSize)
		}
	})

	t.Run("covers the whole text", func(t *testing.T) {
		text := strings.Repeat("abc def ghi ", 20)
		chunks, err := s.Split(testDocument(core.KindText, text), core.SplitConfig{ChunkSize: 16, ChunkOverlap: 4})
		require.NoError(t, err)
		assert.Equal(t, 0, chunks[0].StartOffset)
		assert.Equal(t, utf8.RuneCountInString(text), chunks[len(chunks)-1].EndOffset)
		for i := 1; i < len(chunks); i++ {
			assert.LessOrEqual(t, chunks[i].StartOffset, chunks[i-1].EndOffset, "gap before chunk %d", i)
			assert.Greater(t, chunks[i].StartOffset, chunks[i-1].StartOffset, "chunk %d does not advance", i)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		chunks, err := s.Split(testDocument(core.KindText, ""), core.DefaultSplitConfig())
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}
