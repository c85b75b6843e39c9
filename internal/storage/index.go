// Package storage holds the namespaced vector index: a Qdrant-backed
// implementation and an in-memory one.
package storage

import "context"

// Index is the vector index capability. Every operation is scoped to one
// namespace; entries in different namespaces are never compared.
type Index interface {
	// Dimension is the vector size the index accepts.
	Dimension() int

	// Upsert writes entries under namespace and returns how many were
	// written. A partial failure returns *UpsertError.
	Upsert(ctx context.Context, namespace string, entries []Entry) (int, error)

	// Query returns at most k entries of namespace, most similar first.
	// An empty or unknown namespace yields no matches and no error.
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)

	Count(ctx context.Context, namespace string) (uint64, error)

	// NamespaceInfo returns the metadata of one entry of the namespace, or
	// nil when the namespace is empty. Callers read the embedding model and
	// revision from it.
	NamespaceInfo(ctx context.Context, namespace string) (*EntryMetadata, error)

	ClearNamespace(ctx context.Context, namespace string) error

	Health(ctx context.Context) error
	Close() error
}
