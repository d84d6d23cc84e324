package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// VectorIndex implements storage.VectorIndex as a flat scan over BadgerDB.
// Vectors are normalized on write so the stored dot product is the cosine
// similarity.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a vector index on top of an open backend.
// The backend is owned by the caller.
func NewVectorIndex(backend *Backend) (storage.VectorIndex, error) {
	return newVectorIndex(backend)
}

func newVectorIndex(backend *Backend) (*VectorIndex, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return &VectorIndex{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (ix *VectorIndex) Close() error {
	return nil
}

// Upsert stores or replaces one entry.
func (ix *VectorIndex) Upsert(ctx context.Context, id, text string, vector []float32, metadata map[string]any) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s", storage.ErrDimensionMismatch, id)
	}
	encoded, err := storage.EncodeMetadata(metadata)
	if err != nil {
		return err
	}
	record := &core.IndexRecord{
		ID:        id,
		Text:      text,
		Vector:    normalize(vector),
		Metadata:  encoded,
		IndexedAt: time.Now().UTC(),
	}
	return ix.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeIndexKey(id), storage.MarshalIndexRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search scans every entry, keeps those matching filter and returns the
// topK highest scoring.
func (ix *VectorIndex) Search(ctx context.Context, vector []float32, topK int, filter storage.Filter) ([]core.SearchResult, error) {
	if ix.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	query := normalize(vector)
	var results []core.SearchResult

	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix(indexRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.IndexRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalIndexRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(record.Vector) != len(query) {
				return fmt.Errorf("%w: query has %d dimensions, %s has %d",
					storage.ErrDimensionMismatch, len(query), record.ID, len(record.Vector))
			}
			metadata, err := storage.DecodeMetadata(record.Metadata)
			if err != nil {
				return err
			}
			if !filter.Matches(metadata) {
				continue
			}
			results = append(results, storage.ResultFromRecord(record.ID, record.Text, metadata, dotProduct(query, record.Vector)))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes entries by id.
func (ix *VectorIndex) Delete(ctx context.Context, ids ...string) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ix.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeIndexKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Clear drops every index entry. Sessions sharing the backend are kept.
func (ix *VectorIndex) Clear(ctx context.Context) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ix.backend.DropPrefix(scanPrefix(indexRecordPrefix))
}

// Count returns the number of stored entries.
func (ix *VectorIndex) Count(ctx context.Context) (int, error) {
	if ix.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	count := 0
	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix(indexRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Persist writes a backup of the index entries to path.
func (ix *VectorIndex) Persist(ctx context.Context, path string) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ix.backend.BackupPrefix(f, scanPrefix(indexRecordPrefix)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Restore replaces the index entries with the backup at path.
func (ix *VectorIndex) Restore(ctx context.Context, path string) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ix.Clear(ctx); err != nil {
		return err
	}
	return ix.backend.Load(f)
}

// normalize returns a unit-length copy of v. A zero vector is returned as is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
