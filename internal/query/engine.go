// Package query answers natural-language questions with the most similar
// chunks of one namespace.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mike-a-ellis/repo-rag/internal/embedding"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

const DefaultTopK = 5

// Result is the ranked answer to a query.
type Result struct {
	Namespace string          `json:"namespace"`
	Matches   []storage.Match `json:"matches"`
}

// Engine embeds query text and searches the index.
type Engine struct {
	embedder *embedding.Embedder
	index    storage.Index
	topK     int
	logger   *slog.Logger
}

// NewEngine creates an Engine. topK <= 0 selects DefaultTopK.
func NewEngine(embedder *embedding.Embedder, index storage.Index, topK int, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{embedder: embedder, index: index, topK: topK, logger: logger}
}

// Query returns at most k matches from namespace, most similar first. k <= 0
// uses the engine's default. A namespace with no entries yields an empty
// result without calling the embedding service.
func (e *Engine) Query(ctx context.Context, text, namespace string, k int) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is empty", ragerr.ErrPrecondition)
	}
	if k <= 0 {
		k = e.topK
	}
	result := &Result{Namespace: namespace, Matches: []storage.Match{}}

	info, err := e.index.NamespaceInfo(ctx, namespace)
	if err != nil {
		return nil, &ragerr.CapabilityError{Stage: ragerr.StageRetrieve, Namespace: namespace, Err: err}
	}
	if info == nil {
		e.logger.Debug("Query against empty namespace", "namespace", namespace)
		return result, nil
	}
	if info.Model != "" && info.Model != e.embedder.Model() {
		return nil, ragerr.Configf("namespace %s was indexed with %s, queries use %s", namespace, info.Model, e.embedder.Model())
	}

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, ragerr.ErrConfiguration) {
			return nil, err
		}
		return nil, &ragerr.CapabilityError{Stage: ragerr.StageEmbedQuery, Namespace: namespace, Err: err}
	}

	matches, err := e.index.Query(ctx, namespace, vector, k)
	if err != nil {
		if errors.Is(err, ragerr.ErrConfiguration) {
			return nil, err
		}
		return nil, &ragerr.CapabilityError{Stage: ragerr.StageRetrieve, Namespace: namespace, Err: err}
	}
	if matches != nil {
		result.Matches = matches
	}

	e.logger.Info("Query complete", "namespace", namespace, "k", k, "matches", len(result.Matches))
	return result, nil
}
