package splitter

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSplitter(t *testing.T) {
	s := NewJSONSplitter()

	t.Run("small document stays whole and keeps key order", func(t *testing.T) {
		chunks, err := s.Split(testDocument(core.KindJSON, `{ "b": 1, "a": [1, 2], "c": "<x>" }`), core.DefaultSplitConfig())
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, `{"b":1,"a":[1,2],"c":"<x>"}`, chunks[0].Content)
		assert.Equal(t, MethodJSONWhole, chunks[0].Metadata["json_method"])
		assert.Equal(t, "b,a,c", chunks[0].Metadata["json_keys"])
	})

	t.Run("object entries are packed within the limit", func(t *testing.T) {
		var keys []string
		var parts []string
		for i := 0; i < 20; i++ {
			key := fmt.Sprintf("key%02d", i)
			keys = append(keys, key)
			parts = append(parts, fmt.Sprintf("%q: %q", key, strings.Repeat("v", 20)))
		}
		content := "{" + strings.Join(parts, ", ") + "}"
		cfg := core.SplitConfig{ChunkSize: 100}

		chunks, err := s.Split(testDocument(core.KindJSON, content), cfg)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		requireChunkInvariants(t, chunks, cfg.ChunkSize)

		var seen []string
		for _, c := range chunks {
			assert.Equal(t, MethodJSONStructure, c.Metadata["json_method"])
			assert.Equal(t, "object", c.Metadata["json_type"])
			assert.Equal(t, "$", c.Metadata["json_path"])
			seen = append(seen, orderedKeys(t, c.Content)...)
		}
		assert.Equal(t, keys, seen)
	})

	t.Run("array items are preserved across chunks", func(t *testing.T) {
		items := make([]string, 50)
		for i := range items {
			items[i] = fmt.Sprintf("%d", 1000+i)
		}
		content := "[" + strings.Join(items, ",") + "]"
		cfg := core.SplitConfig{ChunkSize: 40}

		chunks, err := s.Split(testDocument(core.KindJSON, content), cfg)
		require.NoError(t, err)
		requireChunkInvariants(t, chunks, cfg.ChunkSize)

		var total []int
		for _, c := range chunks {
			var part []int
			require.NoError(t, json.Unmarshal([]byte(c.Content), &part))
			total = append(total, part...)
		}
		require.Len(t, total, 50)
		assert.Equal(t, 1000, total[0])
		assert.Equal(t, 1049, total[49])
	})

	t.Run("oversized entries are descended into", func(t *testing.T) {
		big := make([]string, 40)
		for i := range big {
			big[i] = fmt.Sprintf(`{"id":%d}`, i)
		}
		content := `{"small":1,"big":[` + strings.Join(big, ",") + `],"tail":true}`
		cfg := core.SplitConfig{ChunkSize: 60}

		chunks, err := s.Split(testDocument(core.KindJSON, content), cfg)
		require.NoError(t, err)
		requireChunkInvariants(t, chunks, cfg.ChunkSize)

		topKeys := map[string]bool{}
		bigItems := 0
		for _, c := range chunks {
			switch c.Metadata["json_path"] {
			case "$":
				for _, k := range orderedKeys(t, c.Content) {
					topKeys[k] = true
				}
			case "$.big":
				var part []map[string]int
				require.NoError(t, json.Unmarshal([]byte(c.Content), &part))
				bigItems += len(part)
			default:
				t.Fatalf("unexpected path %v", c.Metadata["json_path"])
			}
		}
		assert.Equal(t, map[string]bool{"small": true, "tail": true}, topKeys)
		assert.Equal(t, 40, bigItems)
	})

	t.Run("oversized scalar is emitted whole", func(t *testing.T) {
		long := strings.Repeat("x", 300)
		chunks, err := s.Split(testDocument(core.KindJSON, `{"s":"`+long+`","n":1}`), core.SplitConfig{ChunkSize: 50})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, `"`+long+`"`, chunks[0].Content)
		assert.Equal(t, "$.s", chunks[0].Metadata["json_path"])
		assert.Equal(t, "scalar", chunks[0].Metadata["json_type"])
		assert.Equal(t, `{"n":1}`, chunks[1].Content)
	})

	t.Run("non-ascii sizes are measured in runes", func(t *testing.T) {
		content := `["数据一","数据二","数据三","数据四"]`
		chunks, err := s.Split(testDocument(core.KindJSON, content), core.SplitConfig{ChunkSize: 12})
		require.NoError(t, err)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 12)
		}
	})

	t.Run("invalid json falls back to text", func(t *testing.T) {
		chunks, err := s.Split(testDocument(core.KindJSON, `{"unterminated": [1, 2`), core.SplitConfig{ChunkSize: 8})
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.Equal(t, MethodJSONFallback, c.Metadata["json_method"])
		}
	})

	t.Run("trailing data is invalid", func(t *testing.T) {
		_, err := parseJSON(`{"a":1} {"b":2}`)
		require.ErrorIs(t, err, ErrInvalidJSON)
	})
}

// orderedKeys returns the top-level keys of a JSON object in document order.
func orderedKeys(t *testing.T, content string) []string {
	t.Helper()
	root, err := parseJSON(content)
	require.NoError(t, err)
	require.Equal(t, jsonObject, root.kind)
	return root.keys
}
