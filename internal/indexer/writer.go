package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/repo-rag/internal/config"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// IndexedChunk is an embedded chunk ready to be written.
type IndexedChunk struct {
	Ref   string // "path#ordinal"
	Entry storage.Entry
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Model is the embedding model every entry of this writer carries.
	Model string
	// Credential is the embedding API key. Writes are refused without it.
	Credential string
	// Policy is config.ReingestAppend or config.ReingestReplace.
	Policy string
}

// Writer upserts embedded chunks into a namespace of the index.
type Writer struct {
	index  storage.Index
	opts   WriterOptions
	logger *slog.Logger
}

// NewWriter creates a Writer over index.
func NewWriter(index storage.Index, opts WriterOptions, logger *slog.Logger) *Writer {
	if opts.Policy == "" {
		opts.Policy = config.ReingestAppend
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{index: index, opts: opts, logger: logger}
}

// Preflight runs before any traversal or embedding. It fails with a
// configuration error when the embedding credential is missing, or when the
// namespace already holds entries from another embedding model and the
// policy would keep them.
func (w *Writer) Preflight(ctx context.Context, namespace string) error {
	if w.opts.Credential == "" {
		return ragerr.Configf("embedding API credential is not set")
	}
	if w.opts.Policy == config.ReingestReplace {
		return nil
	}

	info, err := w.index.NamespaceInfo(ctx, namespace)
	if err != nil {
		return &ragerr.CapabilityError{Stage: ragerr.StageUpsert, Namespace: namespace, Err: err}
	}
	if info != nil && info.Model != "" && info.Model != w.opts.Model {
		return ragerr.Configf("namespace %s holds embeddings from %s, current model is %s: clear the namespace or set REINGEST_POLICY=replace",
			namespace, info.Model, w.opts.Model)
	}
	return nil
}

// Begin prepares namespace for a new ingestion. Under the replace policy it
// removes the namespace's previous entries; under append it does nothing,
// so re-ingesting produces duplicates.
func (w *Writer) Begin(ctx context.Context, namespace string) error {
	if w.opts.Policy != config.ReingestReplace {
		return nil
	}
	if err := w.index.ClearNamespace(ctx, namespace); err != nil {
		return &ragerr.CapabilityError{Stage: ragerr.StageUpsert, Namespace: namespace, Err: err}
	}
	w.logger.Info("Cleared namespace before re-ingest", "namespace", namespace)
	return nil
}

// Upsert writes chunks to namespace and returns how many entries were
// written. Failed writes come back as *ragerr.CapabilityError naming the
// affected chunks.
func (w *Writer) Upsert(ctx context.Context, namespace string, chunks []IndexedChunk) (int, error) {
	if w.opts.Credential == "" {
		return 0, ragerr.Configf("embedding API credential is not set")
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	dim := w.index.Dimension()
	entries := make([]storage.Entry, len(chunks))
	for i, c := range chunks {
		if len(c.Entry.Vector) != dim {
			return 0, fmt.Errorf("%w: %s has %d dimensions, index expects %d",
				ragerr.ErrConfiguration, c.Ref, len(c.Entry.Vector), dim)
		}
		entries[i] = c.Entry
	}

	written, err := w.index.Upsert(ctx, namespace, entries)
	if err == nil {
		w.logger.Info("Wrote entries", "namespace", namespace, "count", written)
		return written, nil
	}
	if errors.Is(err, ragerr.ErrConfiguration) {
		return written, err
	}

	var affected []string
	var upsertErr *storage.UpsertError
	if errors.As(err, &upsertErr) {
		for _, f := range upsertErr.Failed {
			for _, c := range chunks[f.Start:f.End] {
				affected = append(affected, c.Ref)
			}
		}
	} else {
		for _, c := range chunks {
			affected = append(affected, c.Ref)
		}
	}
	return written, &ragerr.CapabilityError{
		Stage:     ragerr.StageUpsert,
		Namespace: namespace,
		Affected:  affected,
		Err:       err,
	}
}
