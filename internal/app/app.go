// Package app assembles the ingestion and retrieval stack from a Config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/repo-rag/internal/chunker"
	"github.com/mike-a-ellis/repo-rag/internal/config"
	"github.com/mike-a-ellis/repo-rag/internal/embedding"
	ghclient "github.com/mike-a-ellis/repo-rag/internal/github"
	"github.com/mike-a-ellis/repo-rag/internal/indexer"
	"github.com/mike-a-ellis/repo-rag/internal/query"
	"github.com/mike-a-ellis/repo-rag/internal/rag"
	"github.com/mike-a-ellis/repo-rag/internal/selector"
	"github.com/mike-a-ellis/repo-rag/internal/source"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// App holds the wired components. Close releases the index.
type App struct {
	Config   *config.Config
	Index    storage.Index
	GitHub   *ghclient.Client
	Selector *selector.Selector
	Service  *rag.Service

	logger   *slog.Logger
	provider embedding.Provider
}

// New builds the stack. When src is nil repositories are read from GitHub.
// A missing embedding credential does not fail New: ingestion and asking
// report it, status and clear work without it.
func New(ctx context.Context, cfg *config.Config, src source.Source, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	index, err := newIndex(ctx, cfg, provider.Dimension(), logger)
	if err != nil {
		return nil, err
	}

	gh, err := ghclient.NewClient(cfg.GitHubToken)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}

	sel := selector.New(cfg.BlockedDirs...)
	if src == nil {
		src = ghclient.NewFetcher(gh, sel, logger)
	}

	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		index.Close()
		return nil, err
	}

	embedder := embedding.NewEmbedder(provider, cfg.EmbeddingBatchSize, cfg.EmbeddingConcurrency, logger)
	writer := indexer.NewWriter(index, indexer.WriterOptions{
		Model:      provider.Model(),
		Credential: cfg.OpenAIAPIKey,
		Policy:     cfg.ReingestPolicy,
	}, logger)
	pipeline := indexer.NewPipeline(src, ch, embedder, writer, logger)
	engine := query.NewEngine(embedder, index, cfg.TopK, logger)

	return &App{
		Config:   cfg,
		Index:    index,
		GitHub:   gh,
		Selector: sel,
		Service:  rag.NewService(pipeline, engine, index, logger),
		logger:   logger,
		provider: provider,
	}, nil
}

// Model is the embedding model the stack writes and queries with.
func (a *App) Model() string { return a.provider.Model() }

// Close releases the index connection.
func (a *App) Close() error {
	return a.Index.Close()
}

func newProvider(cfg *config.Config) (embedding.Provider, error) {
	if cfg.OpenAIAPIKey == "" {
		dim, _, err := embedding.ResolveDimension(cfg.EmbeddingModel, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		return embedding.Unconfigured{ModelName: cfg.EmbeddingModel, Dim: dim}, nil
	}
	return embedding.NewOpenAIProvider(embedding.OpenAIOptions{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
}

func newIndex(ctx context.Context, cfg *config.Config, dimension int, logger *slog.Logger) (storage.Index, error) {
	switch cfg.VectorBackend {
	case config.BackendMemory:
		var similarity storage.Similarity = storage.CosineSimilarity
		if cfg.IndexDistance == config.DistanceDot {
			similarity = storage.DotProduct
		}
		logger.Info("Using in-memory vector index", "dimension", dimension, "distance", cfg.IndexDistance)
		return storage.NewMemoryIndex(dimension, similarity), nil
	default:
		index, err := storage.NewQdrantIndex(ctx, storage.QdrantOptions{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.IndexName,
			Dimension:  dimension,
			Distance:   cfg.IndexDistance,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to Qdrant at %s:%d: %w", cfg.QdrantHost, cfg.QdrantPort, err)
		}
		return index, nil
	}
}
