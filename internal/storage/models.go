package storage

import "time"

// Entry is one vector with the chunk text it was computed from.
type Entry struct {
	Vector   []float32
	Text     string
	Metadata EntryMetadata
}

// EntryMetadata travels with every entry and is returned with matches.
type EntryMetadata struct {
	SourcePath string // relative path inside the repository
	Ordinal    int    // chunk position within the file
	Section    string // markdown header path, if any
	Language   string
	Model      string // embedding model that produced the vector
	Revision   string // commit SHA the file was read at
	IndexedAt  time.Time
}

// Match is a query hit. Higher scores are more similar.
type Match struct {
	Score    float64
	Text     string
	Metadata EntryMetadata
}

// Named vector used for chunk embeddings.
const vectorName = "content"

// DefaultCollectionName is the single Qdrant collection shared by all
// namespaces.
const DefaultCollectionName = "repositories"

// Payload field names.
const (
	fieldNamespace = "namespace"
	fieldPath      = "source_path"
	fieldOrdinal   = "ordinal"
	fieldText      = "text"
	fieldSection   = "section"
	fieldLanguage  = "language"
	fieldModel     = "embedding_model"
	fieldRevision  = "revision"
	fieldIndexedAt = "indexed_at"
)
