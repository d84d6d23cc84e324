package docqa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/metrics"
	"github.com/poiesic/docqa/qa"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, path string) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = path
	e, err := NewEngine(context.Background(), cfg,
		WithProvider(mock.NewMockProvider()),
		WithMetrics(metrics.NewRecorder(metrics.WithRegistry(prometheus.NewRegistry()))))
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		e := newTestEngine(t, filepath.Join(t.TempDir(), "db"))
		defer e.Close()

		assert.NotNil(t, e.Indexer())
		assert.NotNil(t, e.Queries())
		assert.NotNil(t, e.Sessions())
		assert.NotNil(t, e.Index())
		assert.NotNil(t, e.Metrics())
	})

	t.Run("in memory", func(t *testing.T) {
		e := newTestEngine(t, "")
		assert.NoError(t, e.Close())
	})

	t.Run("invalid path", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0644))

		cfg := config.Default()
		cfg.Storage.Path = file
		e, err := NewEngine(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, e)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage.Backend = "sqlite"
		_, err := NewEngine(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestEngine_IndexAndQuery(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	defer e.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reset.md"), []byte("# Reset\n\nUse the reset link on the login page."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.txt"), []byte("Invoices are sent monthly."), 0644))

	res := e.BuildIndex(ctx, []string{dir}, true)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, res.DocumentsProcessed)

	answer := e.Query(ctx, qa.Request{Question: "How do I reset my password?", SessionID: "s1", TopK: 2})
	require.True(t, answer.Success, answer.Error)
	assert.Len(t, answer.Sources, 2)
	assert.Len(t, e.Sessions().History("s1", 0), 2)
}

func TestEngine_SaveDocument(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	defer e.Close()

	assert.True(t, e.SaveDocument(ctx, core.NewDocument("a note", core.KindText, "note.txt", nil)))
	assert.True(t, e.SaveDocument(ctx, core.Document{Content: "no id yet", Kind: core.KindText}))
	assert.False(t, e.SaveDocument(ctx, core.Document{Content: "   "}))

	count, err := e.Index().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEngine_SessionsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db")

	e := newTestEngine(t, path)
	require.True(t, e.Query(ctx, qa.Request{Question: "hello", SessionID: "s1"}).Success)
	require.NoError(t, e.Sessions().Snapshot(ctx))
	require.NoError(t, e.Close())

	e = newTestEngine(t, path)
	defer e.Close()
	n, err := e.Sessions().Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, e.Sessions().History("s1", 0), 2)
}

func TestEngine_Background(t *testing.T) {
	e := newTestEngine(t, "")
	defer e.Close()

	sweeper, err := e.NewSweeper()
	require.NoError(t, err)
	assert.NotNil(t, sweeper)

	w, err := e.NewWatcher()
	require.NoError(t, err)
	w.Release()
}
