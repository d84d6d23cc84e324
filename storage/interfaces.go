package storage

import (
	"context"

	"github.com/poiesic/docqa/core"
)

// Filter restricts a search to entries whose metadata values equal the
// given values. Values are compared by their string form.
type Filter map[string]any

// VectorIndex stores (id, text, vector, metadata) tuples and answers top-k
// similarity queries. Implementations must be thread-safe and support
// concurrent access.
type VectorIndex interface {
	// Upsert inserts or replaces the entry with the given id.
	Upsert(ctx context.Context, id, text string, vector []float32, metadata map[string]any) error

	// Search returns up to topK entries ordered by descending score.
	// A nil filter matches everything.
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]core.SearchResult, error)

	// Delete removes entries by id. Missing ids are ignored.
	Delete(ctx context.Context, ids ...string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Persist writes a snapshot of the index to path.
	Persist(ctx context.Context, path string) error

	// Restore loads a snapshot previously written by Persist.
	Restore(ctx context.Context, path string) error

	// Close releases resources held by the index.
	Close() error
}

// SessionRepository persists conversation sessions across restarts.
type SessionRepository interface {
	// SaveSessions inserts or replaces the given sessions.
	SaveSessions(ctx context.Context, records ...*core.SessionRecord) error

	// LoadSessions returns every stored session.
	LoadSessions(ctx context.Context) ([]*core.SessionRecord, error)

	// DeleteSession removes a session. Returns ErrNotFound if it doesn't exist.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases resources held by the repository.
	Close() error
}
