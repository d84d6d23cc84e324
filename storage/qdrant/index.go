// Package qdrant implements storage.VectorIndex on a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	qd "github.com/qdrant/go-client/qdrant"
)

const (
	defaultCollection = "docqa"
	defaultPort       = 6334

	payloadID       = "doc_id"
	payloadText     = "text"
	payloadMetadata = "metadata"
)

// pointNamespace derives stable point UUIDs from chunk ids.
var pointNamespace = uuid.MustParse("6f1c8a4e-2b1d-5c7e-9a3f-4d2e8b6c0a11")

// Index stores chunks as points in one collection with cosine distance.
// The collection is created on the first Upsert, sized to that vector.
type Index struct {
	client     *qd.Client
	collection string
	logger     *slog.Logger
	mu         sync.Mutex
	ready      bool
}

var _ storage.VectorIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(ix *Index) error {
		if name == "" {
			return errors.New("collection name cannot be empty")
		}
		ix.collection = name
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "qdrant")
		return nil
	}
}

// New creates a client for the server at rawURL, e.g. http://localhost:6334.
func New(rawURL, apiKey string, opts ...Option) (storage.VectorIndex, error) {
	ix := &Index{
		collection: defaultCollection,
		logger:     slog.Default().With("component", "qdrant"),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	cfg, err := clientConfig(rawURL, apiKey)
	if err != nil {
		return nil, err
	}
	client, err := qd.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	ix.client = client
	return ix, nil
}

func clientConfig(rawURL, apiKey string) (*qd.Config, error) {
	if rawURL == "" {
		return nil, errors.New("qdrant URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant URL: %w", err)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant URL: %s", rawURL)
	}
	port := defaultPort
	if parsed.Port() != "" {
		port, err = strconv.Atoi(parsed.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
	}
	return &qd.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	}, nil
}

// pointID maps an arbitrary chunk id onto a stable UUID.
func pointID(id string) *qd.PointId {
	return qd.NewID(uuid.NewSHA1(pointNamespace, []byte(id)).String())
}

func (ix *Index) ensureCollection(ctx context.Context, dimension int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ready {
		return nil
	}
	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", ix.collection, err)
	}
	if !exists {
		err = ix.client.CreateCollection(ctx, &qd.CreateCollection{
			CollectionName: ix.collection,
			VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
				Size:     uint64(dimension),
				Distance: qd.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", ix.collection, err)
		}
		ix.logger.Debug("collection created", "collection", ix.collection, "dimension", dimension)
	}
	ix.ready = true
	return nil
}

func (ix *Index) collectionExists(ctx context.Context) (bool, error) {
	ix.mu.Lock()
	ready := ix.ready
	ix.mu.Unlock()
	if ready {
		return true, nil
	}
	return ix.client.CollectionExists(ctx, ix.collection)
}

// buildPayload keeps the full metadata as JSON and mirrors every value as a
// string field so filters can match on it.
func buildPayload(id, text string, metadata map[string]any) (map[string]*qd.Value, error) {
	encoded, err := storage.EncodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	payload := map[string]*qd.Value{
		payloadID:       qd.NewValueString(id),
		payloadText:     qd.NewValueString(text),
		payloadMetadata: qd.NewValueString(encoded),
	}
	for k, v := range metadata {
		if _, reserved := payload[k]; reserved {
			continue
		}
		payload[k] = qd.NewValueString(fmt.Sprint(v))
	}
	return payload, nil
}

func buildFilter(filter storage.Filter) *qd.Filter {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	conditions := make([]*qd.Condition, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, qd.NewMatch(k, fmt.Sprint(filter[k])))
	}
	return &qd.Filter{Must: conditions}
}

func resultFromPoint(point *qd.ScoredPoint) (core.SearchResult, error) {
	payload := point.GetPayload()
	metadata, err := storage.DecodeMetadata(payload[payloadMetadata].GetStringValue())
	if err != nil {
		return core.SearchResult{}, err
	}
	return storage.ResultFromRecord(
		payload[payloadID].GetStringValue(),
		payload[payloadText].GetStringValue(),
		metadata,
		point.GetScore(),
	), nil
}

// Upsert stores or replaces one point.
func (ix *Index) Upsert(ctx context.Context, id, text string, vector []float32, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s", storage.ErrDimensionMismatch, id)
	}
	if err := ix.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}
	payload, err := buildPayload(id, text, metadata)
	if err != nil {
		return err
	}
	_, err = ix.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: ix.collection,
		Wait:           qd.PtrOf(true),
		Points: []*qd.PointStruct{{
			Id:      pointID(id),
			Vectors: qd.NewVectors(vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", id, err)
	}
	return nil
}

// Search queries the collection for the nearest points.
func (ix *Index) Search(ctx context.Context, vector []float32, topK int, filter storage.Filter) ([]core.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	exists, err := ix.collectionExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	points, err := ix.client.Query(ctx, &qd.QueryPoints{
		CollectionName: ix.collection,
		Query:          qd.NewQuery(vector...),
		Limit:          qd.PtrOf(uint64(topK)),
		Filter:         buildFilter(filter),
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]core.SearchResult, 0, len(points))
	for _, point := range points {
		result, err := resultFromPoint(point)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Delete removes points by chunk id.
func (ix *Index) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	exists, err := ix.collectionExists(ctx)
	if err != nil || !exists {
		return err
	}
	pointIDs := make([]*qd.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	_, err = ix.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: ix.collection,
		Wait:           qd.PtrOf(true),
		Points:         qd.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// Clear drops the collection.
func (ix *Index) Clear(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return err
	}
	if exists {
		if err := ix.client.DeleteCollection(ctx, ix.collection); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", ix.collection, err)
		}
	}
	ix.ready = false
	return nil
}

// Count returns the exact number of points.
func (ix *Index) Count(ctx context.Context) (int, error) {
	exists, err := ix.collectionExists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	count, err := ix.client.Count(ctx, &qd.CountPoints{
		CollectionName: ix.collection,
		Exact:          qd.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Persist asks the server for a collection snapshot and writes its name to path.
func (ix *Index) Persist(ctx context.Context, path string) error {
	snapshot, err := ix.client.CreateSnapshot(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", ix.collection, err)
	}
	ix.logger.Info("snapshot created", "collection", ix.collection, "snapshot", snapshot.GetName())
	return os.WriteFile(path, []byte(snapshot.GetName()+"\n"), 0644)
}

// Restore is unsupported; snapshots are recovered through the Qdrant server.
func (ix *Index) Restore(ctx context.Context, path string) error {
	return fmt.Errorf("%w: qdrant snapshots are restored server side", storage.ErrUnsupported)
}

// Close closes the gRPC connection.
func (ix *Index) Close() error {
	return ix.client.Close()
}
