package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize bounds the points sent per Upsert request.
const upsertBatchSize = 100

// QdrantOptions configures NewQdrantIndex.
type QdrantOptions struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
	// Distance is "cosine" or "dot".
	Distance string
}

// QdrantIndex stores every namespace in one collection, partitioned by a
// tenant-indexed "namespace" payload field.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
	distance   qdrant.Distance
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewQdrantIndex connects to Qdrant over gRPC, waits for it to become
// healthy and makes sure the collection exists with the expected vector size.
func NewQdrantIndex(ctx context.Context, opts QdrantOptions, logger *slog.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollectionName
	}

	distance := qdrant.Distance_Cosine
	if opts.Distance == "dot" {
		distance = qdrant.Distance_Dot
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: opts.Collection,
		dimension:  opts.Dimension,
		distance:   distance,
		logger:     logger,
		newBackOff: defaultBackOff,
	}

	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	if err := idx.EnsureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return idx, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (s *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(s.newBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantIndex) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

func (s *QdrantIndex) Dimension() int { return s.dimension }

// EnsureCollection creates the collection and its payload indexes if needed.
// An existing collection with a different vector size is a configuration
// error.
func (s *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("failed to get collection %s: %w", s.collection, err)
		}
		params := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[vectorName]
		return checkVectorParams(s.collection, params, s.dimension, s.distance)
	}

	s.logger.Info("Creating collection", "collection", s.collection, "dimension", s.dimension, "distance", s.distance.String())
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: s.distance,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}
	return nil
}

// checkVectorParams compares an existing collection's vector configuration
// with the configured size and distance.
func checkVectorParams(collection string, params *qdrant.VectorParams, dimension int, distance qdrant.Distance) error {
	if params == nil {
		return fmt.Errorf("collection %s has no %q vector", collection, vectorName)
	}
	if int(params.GetSize()) != dimension {
		return dimensionError("collection "+collection, int(params.GetSize()), dimension)
	}
	if params.GetDistance() != distance {
		return distanceError(collection, params.GetDistance().String(), distance.String())
	}
	return nil
}

// createPayloadIndexes indexes the filterable fields. The namespace index is
// marked as the tenant key so Qdrant co-locates each namespace's points.
func (s *QdrantIndex) createPayloadIndexes(ctx context.Context) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      fieldNamespace,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		FieldIndexParams: qdrant.NewPayloadIndexParamsKeyword(&qdrant.KeywordIndexParams{
			IsTenant: qdrant.PtrOf(true),
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", fieldNamespace, err)
	}

	for _, field := range []string{fieldPath, fieldModel, fieldRevision} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(fieldNamespace, namespace),
		},
	}
}

// Upsert writes entries in batches of 100. A failed batch does not stop the
// remaining ones; all failures are returned in an *UpsertError.
func (s *QdrantIndex) Upsert(ctx context.Context, namespace string, entries []Entry) (int, error) {
	for i, e := range entries {
		if len(e.Vector) != s.dimension {
			return 0, dimensionError(fmt.Sprintf("entry %d", i), len(e.Vector), s.dimension)
		}
	}

	written := 0
	var failed []FailedRange
	for i := 0; i < len(entries); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(entries))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, e := range entries[i:end] {
			points = append(points, toPoint(namespace, e))
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			s.logger.Warn("Upsert batch failed", "namespace", namespace, "start", i, "end", end, "error", err)
			failed = append(failed, FailedRange{Start: i, End: end, Err: err})
			continue
		}
		written += len(points)
	}

	if len(failed) > 0 {
		return written, &UpsertError{Failed: failed}
	}
	return written, nil
}

func toPoint(namespace string, e Entry) *qdrant.PointStruct {
	indexedAt := e.Metadata.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(uuid.New().String()),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorName: qdrant.NewVector(e.Vector...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			fieldNamespace: namespace,
			fieldPath:      e.Metadata.SourcePath,
			fieldOrdinal:   e.Metadata.Ordinal,
			fieldText:      e.Text,
			fieldSection:   e.Metadata.Section,
			fieldLanguage:  e.Metadata.Language,
			fieldModel:     e.Metadata.Model,
			fieldRevision:  e.Metadata.Revision,
			fieldIndexedAt: indexedAt.UTC().Format(time.RFC3339),
		}),
	}
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx))
}

// Query performs vector similarity search restricted to namespace.
func (s *QdrantIndex) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, dimensionError("query", len(vector), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query namespace %s: %w", namespace, err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		matches = append(matches, Match{
			Score:    float64(result.Score),
			Text:     result.Payload[fieldText].GetStringValue(),
			Metadata: metadataFromPayload(result.Payload),
		})
	}
	return matches, nil
}

func metadataFromPayload(payload map[string]*qdrant.Value) EntryMetadata {
	indexedAt, err := time.Parse(time.RFC3339, payload[fieldIndexedAt].GetStringValue())
	if err != nil {
		indexedAt = time.Time{}
	}
	return EntryMetadata{
		SourcePath: payload[fieldPath].GetStringValue(),
		Ordinal:    int(payload[fieldOrdinal].GetIntegerValue()),
		Section:    payload[fieldSection].GetStringValue(),
		Language:   payload[fieldLanguage].GetStringValue(),
		Model:      payload[fieldModel].GetStringValue(),
		Revision:   payload[fieldRevision].GetStringValue(),
		IndexedAt:  indexedAt,
	}
}

// Count returns the exact number of points in namespace.
func (s *QdrantIndex) Count(ctx context.Context, namespace string) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         namespaceFilter(namespace),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count namespace %s: %w", namespace, err)
	}
	return n, nil
}

// NamespaceInfo scrolls a single point of the namespace.
func (s *QdrantIndex) NamespaceInfo(ctx context.Context, namespace string) (*EntryMetadata, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint32(1)),
		WithPayload:    qdrant.NewWithPayloadInclude(fieldPath, fieldOrdinal, fieldModel, fieldRevision, fieldIndexedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll namespace %s: %w", namespace, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	meta := metadataFromPayload(results[0].Payload)
	return &meta, nil
}

// ClearNamespace deletes every point of namespace. Other namespaces and the
// collection itself are untouched.
func (s *QdrantIndex) ClearNamespace(ctx context.Context, namespace string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
	})
	if err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", namespace, err)
	}
	s.logger.Info("Cleared namespace", "namespace", namespace)
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
