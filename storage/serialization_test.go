package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &core.IndexRecord{
		ID:        "doc-0",
		Text:      "chunk text",
		Vector:    []float32{0.1, 0.2, 0.3},
		Metadata:  `{"source":"a.md"}`,
		IndexedAt: now,
	}

	decoded, err := UnmarshalIndexRecord(MarshalIndexRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record.ID, decoded.ID)
	assert.Equal(t, record.Vector, decoded.Vector)
	assert.Equal(t, record.Metadata, decoded.Metadata)
	assert.True(t, record.IndexedAt.Equal(decoded.IndexedAt))
}

func TestSessionRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &core.SessionRecord{
		SessionID: "s1",
		UserID:    "user_s1",
		Messages: []core.MessageRecord{
			{Role: core.RoleUser, Content: "hi", Timestamp: now},
			{Role: core.RoleAssistant, Content: "hello", Timestamp: now},
		},
		Context:      `{"topic":"billing"}`,
		CreatedAt:    now,
		LastActivity: now,
	}

	decoded, err := UnmarshalSessionRecord(MarshalSessionRecord(record))
	require.NoError(t, err)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, core.RoleAssistant, decoded.Messages[1].Role)
	assert.Equal(t, record.Context, decoded.Context)
	assert.True(t, record.LastActivity.Equal(decoded.LastActivity))
}

func TestUnmarshalIndexRecord_Invalid(t *testing.T) {
	_, err := UnmarshalIndexRecord([]byte{})
	require.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMetadataEncoding(t *testing.T) {
	t.Run("nil map", func(t *testing.T) {
		text, err := EncodeMetadata(nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", text)
	})

	t.Run("numbers decode as float64", func(t *testing.T) {
		text, err := EncodeMetadata(map[string]any{"chunk_index": 3, "source": "a.md"})
		require.NoError(t, err)
		decoded, err := DecodeMetadata(text)
		require.NoError(t, err)
		assert.Equal(t, 3.0, decoded["chunk_index"])
		assert.Equal(t, "a.md", decoded["source"])
	})

	t.Run("empty text", func(t *testing.T) {
		decoded, err := DecodeMetadata("")
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("invalid text", func(t *testing.T) {
		_, err := DecodeMetadata("{")
		require.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestFilterMatches(t *testing.T) {
	metadata := map[string]any{"source": "a.md", "chunk_index": 2.0, "is_chunk": true}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"nil filter", nil, true},
		{"string match", Filter{"source": "a.md"}, true},
		{"number compared by string form", Filter{"chunk_index": 2}, true},
		{"bool match", Filter{"is_chunk": true}, true},
		{"mismatch", Filter{"source": "b.md"}, false},
		{"missing key", Filter{"filename": "a.md"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(metadata))
		})
	}
}

func TestResultFromRecord(t *testing.T) {
	r := ResultFromRecord("id-1", "text", map[string]any{"source": "docs/a.md", "file_type": "md"}, 0.75)
	assert.Equal(t, "id-1", r.Document.ID)
	assert.Equal(t, "docs/a.md", r.Document.Source)
	assert.Equal(t, core.KindMarkdown, r.Document.Kind)
	assert.InDelta(t, 0.25, r.Metadata["distance"], 1e-6)
}
