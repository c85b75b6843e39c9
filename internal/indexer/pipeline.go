// Package indexer runs ingestion: load a repository, chunk its files, embed
// the chunks and write them to the repository's namespace.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mike-a-ellis/repo-rag/internal/chunker"
	"github.com/mike-a-ellis/repo-rag/internal/embedding"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/source"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// SkipCounts breaks down the files that produced no chunks.
type SkipCounts struct {
	Excluded    int `json:"excluded"`    // blocked by the selector
	Undecodable int `json:"undecodable"` // not text
	Unsupported int `json:"unsupported"` // no chunking strategy
}

// Total returns the number of skipped files.
func (s SkipCounts) Total() int {
	return s.Excluded + s.Undecodable + s.Unsupported
}

// Summary contains statistics about an ingestion.
type Summary struct {
	Namespace       string        `json:"namespace"`
	Revision        string        `json:"revision,omitempty"`
	DocumentsLoaded int           `json:"documents_loaded"`
	ChunksCreated   int           `json:"chunks_created"`
	EntriesWritten  int           `json:"entries_written"`
	FilesSkipped    SkipCounts    `json:"files_skipped"`
	Duration        time.Duration `json:"duration"`
}

// Pipeline orchestrates the full ingestion from repository source to index.
type Pipeline struct {
	source   source.Source
	chunker  *chunker.Chunker
	embedder *embedding.Embedder
	writer   *Writer
	logger   *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	src source.Source,
	chunker *chunker.Chunker,
	embedder *embedding.Embedder,
	writer *Writer,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   src,
		chunker:  chunker,
		embedder: embedder,
		writer:   writer,
		logger:   logger,
	}
}

// Ingest indexes ref into the namespace ref.Namespace(). Skipped files are
// counted in the summary; configuration and capability failures abort the
// whole ingestion.
func (p *Pipeline) Ingest(ctx context.Context, ref source.Ref) (*Summary, error) {
	start := time.Now()
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	namespace := ref.Namespace()
	summary := &Summary{Namespace: namespace}

	if err := p.writer.Preflight(ctx, namespace); err != nil {
		return nil, err
	}

	// 1. Load selected, decodable files
	listing, err := p.source.Load(ctx, ref)
	if err != nil {
		return nil, &ragerr.CapabilityError{Stage: ragerr.StageLoad, Namespace: namespace, Err: err}
	}
	summary.Revision = listing.Revision
	summary.DocumentsLoaded = len(listing.Files)
	summary.FilesSkipped.Excluded = listing.Excluded
	summary.FilesSkipped.Undecodable = listing.Undecodable
	p.logger.Info("Starting ingestion", "namespace", namespace, "documents", len(listing.Files), "revision", listing.Revision)

	// 2. Chunk sequentially so ordinals follow document order
	var chunks []chunker.Chunk
	for _, f := range listing.Files {
		fileChunks, err := p.chunker.Chunk(f)
		if errors.Is(err, chunker.ErrUnsupportedFileType) {
			p.logger.Debug("Skipped unsupported file", "path", f.Path)
			summary.FilesSkipped.Unsupported++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", f.Path, err)
		}
		p.logger.Debug("Chunked file", "path", f.Path, "chunks", len(fileChunks))
		chunks = append(chunks, fileChunks...)
	}
	summary.ChunksCreated = len(chunks)

	if len(chunks) == 0 {
		summary.Duration = time.Since(start)
		p.logger.Info("Nothing to index", "namespace", namespace, "skipped", summary.FilesSkipped.Total())
		return summary, nil
	}

	// 3. Embed in concurrent batches
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EmbeddingText()
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, embedFailure(namespace, chunks, err)
	}

	// 4. Write
	indexedAt := time.Now().UTC()
	model := p.embedder.Model()
	indexed := make([]IndexedChunk, len(chunks))
	for i, c := range chunks {
		indexed[i] = IndexedChunk{
			Ref: ragerr.ChunkRef(c.SourcePath, c.Ordinal),
			Entry: storage.Entry{
				Vector: vectors[i],
				Text:   c.Text,
				Metadata: storage.EntryMetadata{
					SourcePath: c.SourcePath,
					Ordinal:    c.Ordinal,
					Section:    c.Section,
					Language:   string(c.Language),
					Model:      model,
					Revision:   listing.Revision,
					IndexedAt:  indexedAt,
				},
			},
		}
	}

	if err := p.writer.Begin(ctx, namespace); err != nil {
		return nil, err
	}
	written, err := p.writer.Upsert(ctx, namespace, indexed)
	summary.EntriesWritten = written
	if err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"namespace", namespace,
		"documents", summary.DocumentsLoaded,
		"chunks", summary.ChunksCreated,
		"written", summary.EntriesWritten,
		"skipped", summary.FilesSkipped.Total(),
		"duration", summary.Duration,
	)
	return summary, nil
}

// embedFailure maps failed embedding batches back to the chunks they held.
func embedFailure(namespace string, chunks []chunker.Chunk, err error) error {
	if errors.Is(err, ragerr.ErrConfiguration) {
		return err
	}

	var affected []string
	var batchErr *embedding.BatchError
	if errors.As(err, &batchErr) {
		for _, f := range batchErr.Failed {
			for _, c := range chunks[f.Start:f.End] {
				affected = append(affected, ragerr.ChunkRef(c.SourcePath, c.Ordinal))
			}
		}
	} else {
		for _, c := range chunks {
			affected = append(affected, ragerr.ChunkRef(c.SourcePath, c.Ordinal))
		}
	}
	return &ragerr.CapabilityError{
		Stage:     ragerr.StageEmbed,
		Namespace: namespace,
		Affected:  affected,
		Err:       err,
	}
}
