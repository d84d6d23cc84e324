// Package pgvector implements storage.VectorIndex on PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

const defaultTableName = "docqa_chunks"

// Index stores chunks in a single table and ranks them by cosine distance.
// The table is created on the first Upsert, sized to that vector.
type Index struct {
	pool      *pgxpool.Pool
	table     string
	logger    *slog.Logger
	mu        sync.Mutex
	dimension int
}

var _ storage.VectorIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithTableName sets the table holding the chunks.
func WithTableName(name string) Option {
	return func(ix *Index) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("table name cannot be empty")
		}
		ix.table = name
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "pgvector")
		return nil
	}
}

// New connects to dsn and verifies the vector extension is installed.
func New(ctx context.Context, dsn string, opts ...Option) (storage.VectorIndex, error) {
	if dsn == "" {
		return nil, errors.New("postgres connection string is required")
	}
	ix := &Index{
		table:  defaultTableName,
		logger: slog.Default().With("component", "pgvector"),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	var extExists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')",
	).Scan(&extExists)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to check pgvector extension: %w", err)
	}
	if !extExists {
		pool.Close()
		return nil, errors.New("pgvector extension not installed - run: CREATE EXTENSION vector")
	}

	ix.pool = pool
	return ix, nil
}

func (ix *Index) tableIdent() string {
	return pgx.Identifier{ix.table}.Sanitize()
}

// ensureTable creates the table for vectors of the given dimension.
func (ix *Index) ensureTable(ctx context.Context, dimension int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension != 0 {
		if ix.dimension != dimension {
			return fmt.Errorf("%w: table holds %d dimensions, got %d", storage.ErrDimensionMismatch, ix.dimension, dimension)
		}
		return nil
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL,
		indexed_at TIMESTAMPTZ NOT NULL
	)`, ix.tableIdent(), dimension)
	if _, err := ix.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	ix.dimension = dimension
	ix.logger.Debug("table ready", "table", ix.table, "dimension", dimension)
	return nil
}

func (ix *Index) tableExists(ctx context.Context) (bool, error) {
	var exists bool
	err := ix.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ix.tableIdent()).Scan(&exists)
	return exists, err
}

// Upsert inserts or replaces one row.
func (ix *Index) Upsert(ctx context.Context, id, text string, vector []float32, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s", storage.ErrDimensionMismatch, id)
	}
	if err := ix.ensureTable(ctx, len(vector)); err != nil {
		return err
	}
	encoded, err := storage.EncodeMetadata(metadata)
	if err != nil {
		return err
	}
	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			indexed_at = EXCLUDED.indexed_at`,
		ix.tableIdent())
	_, err = ix.pool.Exec(ctx, upsertSQL, id, text, encoded, pgvector.NewVector(vector), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", id, err)
	}
	return nil
}

// filterClause renders a filter as text comparisons on the metadata column.
// Placeholders start after the first offset arguments.
func filterClause(filter storage.Filter, offset int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, k := range keys {
		n := offset + len(args)
		clauses = append(clauses, fmt.Sprintf("metadata->>($%d::text) = $%d", n+1, n+2))
		args = append(args, k, fmt.Sprint(filter[k]))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Search ranks rows by cosine similarity.
func (ix *Index) Search(ctx context.Context, vector []float32, topK int, filter storage.Filter) ([]core.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	exists, err := ix.tableExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	where, filterArgs := filterClause(filter, 2)
	querySQL := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s%s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		ix.tableIdent(), where)
	args := append([]any{pgvector.NewVector(vector), topK}, filterArgs...)

	rows, err := ix.pool.Query(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector search failed: %w", err)
	}
	defer rows.Close()

	results := make([]core.SearchResult, 0, topK)
	for rows.Next() {
		var (
			id, content  string
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&id, &content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		metadata := map[string]any{}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
		}
		results = append(results, storage.ResultFromRecord(id, content, metadata, float32(similarity)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// Delete removes rows by id.
func (ix *Index) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	exists, err := ix.tableExists(ctx)
	if err != nil || !exists {
		return err
	}
	_, err = ix.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", ix.tableIdent()), ids)
	if err != nil {
		return fmt.Errorf("failed to delete rows: %w", err)
	}
	return nil
}

// Clear drops the table so the next Upsert may use a new dimension.
func (ix *Index) Clear(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, err := ix.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", ix.tableIdent())); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	ix.dimension = 0
	return nil
}

// Count returns the number of rows.
func (ix *Index) Count(ctx context.Context) (int, error) {
	exists, err := ix.tableExists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	var count int
	err = ix.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", ix.tableIdent())).Scan(&count)
	return count, err
}

// Persist is a no-op; rows are durable once written.
func (ix *Index) Persist(ctx context.Context, path string) error {
	ix.logger.Debug("persist skipped, postgres is durable", "path", path)
	return nil
}

// Restore is a no-op for the same reason as Persist.
func (ix *Index) Restore(ctx context.Context, path string) error {
	ix.logger.Debug("restore skipped, postgres is durable", "path", path)
	return nil
}

// Close closes the connection pool.
func (ix *Index) Close() error {
	if ix.pool != nil {
		ix.pool.Close()
	}
	return nil
}
