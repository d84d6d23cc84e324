package qdrant

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/docqa/storage"
	qd "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		host    string
		port    int
		tls     bool
		wantErr bool
	}{
		{"default port", "http://localhost", "localhost", defaultPort, false, false},
		{"explicit port", "http://qdrant:7000", "qdrant", 7000, false, false},
		{"tls", "https://cloud.example.com:6334", "cloud.example.com", 6334, true, false},
		{"empty", "", "", 0, false, true},
		{"no host", "localhost:6334", "", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := clientConfig(tt.url, "key")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Host)
			assert.Equal(t, tt.port, cfg.Port)
			assert.Equal(t, tt.tls, cfg.UseTLS)
			assert.Equal(t, "key", cfg.APIKey)
		})
	}
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, pointID("doc-1").GetUuid(), pointID("doc-1").GetUuid())
	assert.NotEqual(t, pointID("doc-1").GetUuid(), pointID("doc-2").GetUuid())
}

func TestBuildPayload(t *testing.T) {
	payload, err := buildPayload("doc-0", "hello", map[string]any{"source": "a.md", "chunk_index": 2, "text": "shadowed"})
	require.NoError(t, err)

	assert.Equal(t, "doc-0", payload[payloadID].GetStringValue())
	assert.Equal(t, "hello", payload[payloadText].GetStringValue())
	assert.Equal(t, "a.md", payload["source"].GetStringValue())
	assert.Equal(t, "2", payload["chunk_index"].GetStringValue())
	assert.Contains(t, payload[payloadMetadata].GetStringValue(), `"chunk_index":2`)
}

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(nil))

	filter := buildFilter(storage.Filter{"source": "a.md", "chunk_index": 2})
	require.Len(t, filter.Must, 2)
	assert.Equal(t, "chunk_index", filter.Must[0].GetField().GetKey())
	assert.Equal(t, "2", filter.Must[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "source", filter.Must[1].GetField().GetKey())
}

func TestResultFromPoint(t *testing.T) {
	payload, err := buildPayload("doc-0", "hello", map[string]any{"source": "a.md", "file_type": "md"})
	require.NoError(t, err)

	result, err := resultFromPoint(&qd.ScoredPoint{Payload: payload, Score: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "doc-0", result.Document.ID)
	assert.Equal(t, "hello", result.Document.Content)
	assert.Equal(t, "a.md", result.Document.Source)
	assert.InDelta(t, 0.9, result.Score, 1e-6)
}

func TestRestore_Unsupported(t *testing.T) {
	ix := &Index{}
	assert.ErrorIs(t, ix.Restore(context.Background(), "x"), storage.ErrUnsupported)
}

func TestIndex_Integration(t *testing.T) {
	addr := os.Getenv("DOCQA_QDRANT_URL")
	if addr == "" {
		t.Skip("DOCQA_QDRANT_URL not set")
	}

	ctx := context.Background()
	index, err := New(addr, os.Getenv("DOCQA_QDRANT_API_KEY"), WithCollection("docqa_test"))
	require.NoError(t, err)
	defer index.Close()
	require.NoError(t, index.Clear(ctx))

	require.NoError(t, index.Upsert(ctx, "a", "alpha", []float32{1, 0, 0}, map[string]any{"source": "a.md"}))
	require.NoError(t, index.Upsert(ctx, "b", "beta", []float32{0, 1, 0}, map[string]any{"source": "b.md"}))

	results, err := index.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document.ID)

	results, err = index.Search(ctx, []float32{1, 0, 0}, 5, storage.Filter{"source": "b.md"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Document.ID)

	require.NoError(t, index.Delete(ctx, "a"))
	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, index.Clear(ctx))
}
