package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Similarity scores two vectors of equal length.
type Similarity func(a, b []float32) float64

// MemoryIndex is an in-process Index using brute-force similarity. It is
// used for tests and for the VECTOR_BACKEND=memory mode.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimension  int
	similarity Similarity
	namespaces map[string][]Entry
}

// NewMemoryIndex creates an empty index. A nil similarity means cosine.
func NewMemoryIndex(dimension int, similarity Similarity) *MemoryIndex {
	if similarity == nil {
		similarity = CosineSimilarity
	}
	return &MemoryIndex{
		dimension:  dimension,
		similarity: similarity,
		namespaces: make(map[string][]Entry),
	}
}

func (m *MemoryIndex) Dimension() int { return m.dimension }

func (m *MemoryIndex) Upsert(_ context.Context, namespace string, entries []Entry) (int, error) {
	for i, e := range entries {
		if len(e.Vector) != m.dimension {
			return 0, dimensionError(fmt.Sprintf("entry %d", i), len(e.Vector), m.dimension)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		e.Vector = append([]float32(nil), e.Vector...)
		m.namespaces[namespace] = append(m.namespaces[namespace], e)
	}
	return len(entries), nil
}

func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if len(vector) != m.dimension {
		return nil, dimensionError("query", len(vector), m.dimension)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.namespaces[namespace]
	matches := make([]Match, len(entries))
	for i, e := range entries {
		matches[i] = Match{
			Score:    m.similarity(e.Vector, vector),
			Text:     e.Text,
			Metadata: e.Metadata,
		}
	}

	// stable so equal scores keep insertion order
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k >= 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryIndex) Count(_ context.Context, namespace string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.namespaces[namespace])), nil
}

func (m *MemoryIndex) NamespaceInfo(_ context.Context, namespace string) (*EntryMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.namespaces[namespace]
	if len(entries) == 0 {
		return nil, nil
	}
	meta := entries[len(entries)-1].Metadata
	return &meta, nil
}

func (m *MemoryIndex) ClearNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) Health(context.Context) error { return nil }
func (m *MemoryIndex) Close() error                 { return nil }

// CosineSimilarity returns the cosine of the angle between a and b, or 0 if
// either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DotProduct is the raw inner product, suitable for normalized embeddings.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
