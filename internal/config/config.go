// Package config reads repo-rag settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
)

// Vector index backends.
const (
	BackendQdrant = "qdrant"
	BackendMemory = "memory"
)

// Re-ingest policies. Append keeps whatever the namespace already holds,
// replace clears the namespace before writing.
const (
	ReingestAppend  = "append"
	ReingestReplace = "replace"
)

// Similarity functions supported by the index.
const (
	DistanceCosine = "cosine"
	DistanceDot    = "dot"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultEmbeddingModel       = "text-embedding-3-small"
	DefaultEmbeddingBatchSize   = 500
	DefaultEmbeddingConcurrency = 4
	DefaultQdrantHost           = "localhost"
	DefaultQdrantPort           = 6334
	DefaultIndexName            = "repositories"
	DefaultChunkSize            = 1000
	DefaultChunkOverlap         = 100
	DefaultTopK                 = 5
	DefaultPort                 = "8080"
)

// Config holds every environment-supplied setting.
type Config struct {
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	EmbeddingModel       string
	EmbeddingDimensions  int // 0 means the model default
	EmbeddingBatchSize   int
	EmbeddingConcurrency int

	VectorBackend string
	QdrantHost    string
	QdrantPort    int
	QdrantAPIKey  string
	QdrantUseTLS  bool
	IndexName     string
	IndexDistance string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	ReingestPolicy string
	BlockedDirs    []string

	GitHubToken string

	LogLevel   slog.Level
	Port       string
	ServerMode bool
}

// Load reads the configuration from the process environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:       getEnv("EMBEDDING_MODEL", DefaultEmbeddingModel),
		EmbeddingDimensions:  getEnvInt("EMBEDDING_DIMENSIONS", 0),
		EmbeddingBatchSize:   getEnvInt("EMBEDDING_BATCH_SIZE", DefaultEmbeddingBatchSize),
		EmbeddingConcurrency: getEnvInt("EMBEDDING_CONCURRENCY", DefaultEmbeddingConcurrency),

		VectorBackend: strings.ToLower(getEnv("VECTOR_BACKEND", BackendQdrant)),
		QdrantHost:    getEnv("QDRANT_HOST", DefaultQdrantHost),
		QdrantPort:    getEnvInt("QDRANT_PORT", DefaultQdrantPort),
		QdrantAPIKey:  os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:  getEnvBool("QDRANT_USE_TLS", false),
		IndexName:     getEnv("INDEX_NAME", DefaultIndexName),
		IndexDistance: strings.ToLower(getEnv("INDEX_DISTANCE", DistanceCosine)),

		ChunkSize:    getEnvInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:         getEnvInt("TOP_K", DefaultTopK),

		ReingestPolicy: strings.ToLower(getEnv("REINGEST_POLICY", ReingestAppend)),
		BlockedDirs:    splitList(os.Getenv("BLOCKED_DIRS")),

		GitHubToken: os.Getenv("GITHUB_TOKEN"),

		Port:       getEnv("PORT", DefaultPort),
		ServerMode: getEnvBool("SERVER_MODE", false),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations. Credentials are not checked
// here: commands that never embed (status, clear) run without them.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return ragerr.Configf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return ragerr.Configf("CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return ragerr.Configf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.EmbeddingBatchSize <= 0 {
		return ragerr.Configf("EMBEDDING_BATCH_SIZE must be positive, got %d", c.EmbeddingBatchSize)
	}
	if c.EmbeddingConcurrency <= 0 {
		return ragerr.Configf("EMBEDDING_CONCURRENCY must be positive, got %d", c.EmbeddingConcurrency)
	}
	if c.EmbeddingDimensions < 0 {
		return ragerr.Configf("EMBEDDING_DIMENSIONS must not be negative, got %d", c.EmbeddingDimensions)
	}
	switch c.VectorBackend {
	case BackendQdrant, BackendMemory:
	default:
		return ragerr.Configf("unknown VECTOR_BACKEND %q", c.VectorBackend)
	}
	switch c.IndexDistance {
	case DistanceCosine, DistanceDot:
	default:
		return ragerr.Configf("unknown INDEX_DISTANCE %q", c.IndexDistance)
	}
	switch c.ReingestPolicy {
	case ReingestAppend, ReingestReplace:
	default:
		return ragerr.Configf("unknown REINGEST_POLICY %q", c.ReingestPolicy)
	}
	if c.IndexName == "" {
		return ragerr.Configf("INDEX_NAME must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseLevel(v string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, ragerr.Configf("invalid LOG_LEVEL %q", v)
	}
	return level, nil
}
