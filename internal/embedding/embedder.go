package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
)

const (
	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500

	DefaultConcurrency = 4
)

// FailedBatch is a [Start, End) range of input texts that could not be
// embedded.
type FailedBatch struct {
	Start int
	End   int
	Err   error
}

// BatchError lists every failed batch of an EmbedBatch call. Texts outside
// the failed ranges were embedded but are not returned.
type BatchError struct {
	Total  int
	Failed []FailedBatch
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("texts [%d,%d): %v", f.Start, f.End, f.Err)
	}
	return fmt.Sprintf("embedding failed for %d of %d batches: %s", len(e.Failed), e.Total, strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}

// Embedder batches texts over a Provider and runs the batches concurrently.
type Embedder struct {
	provider    Provider
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewEmbedder creates a new Embedder. Zero values select DefaultBatchSize and
// DefaultConcurrency.
func NewEmbedder(provider Provider, batchSize, concurrency int, logger *slog.Logger) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		provider:    provider,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Model returns the identity of the underlying embedding model.
func (e *Embedder) Model() string { return e.provider.Model() }

// Dimension returns the vector size every embedding has.
func (e *Embedder) Dimension() int { return e.provider.Dimension() }

// Embed embeds a single text, typically a query.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.provider.Create(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if err := e.checkDimension(vectors[0]); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts and returns vectors in input order. Every batch is
// attempted; if any fail the result is a *BatchError naming all of them.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var (
		mu     sync.Mutex
		failed []FailedBatch
	)

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	total := 0
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		total++

		g.Go(func() error {
			batch, err := e.provider.Create(ctx, texts[start:end])
			if err == nil && len(batch) != end-start {
				err = fmt.Errorf("expected %d embeddings, got %d", end-start, len(batch))
			}
			if err != nil {
				e.logger.Warn("Embedding batch failed", "start", start, "end", end, "error", err)
				mu.Lock()
				failed = append(failed, FailedBatch{Start: start, End: end, Err: err})
				mu.Unlock()
				return nil
			}
			copy(vectors[start:end], batch)
			e.logger.Debug("Embedded batch", "start", start, "end", end)
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Start < failed[j].Start })
		return nil, &BatchError{Total: total, Failed: failed}
	}

	for _, v := range vectors {
		if err := e.checkDimension(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (e *Embedder) checkDimension(v []float32) error {
	if want := e.provider.Dimension(); len(v) != want {
		return ragerr.Configf("embedding model %s returned %d dimensions, expected %d", e.provider.Model(), len(v), want)
	}
	return nil
}
