// Package embedding turns text into vectors through an external embedding
// service.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
)

// Provider is the embedding capability. Create makes one call to the
// service and returns one vector per text, in input order.
type Provider interface {
	Model() string
	Dimension() int
	Create(ctx context.Context, texts []string) ([][]float32, error)
}

// Native output sizes of the supported OpenAI models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider generates embeddings with the OpenAI embeddings API.
// Rate-limited requests (HTTP 429) are retried with exponential backoff;
// every other error is returned as is.
type OpenAIProvider struct {
	client     openai.Client
	model      string
	dimension  int
	shortened  bool // request a reduced dimension from a v3 model
	newBackOff func() backoff.BackOff
}

// OpenAIOptions configures NewOpenAIProvider.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions overrides the model's native size. Only the
	// text-embedding-3 family supports it.
	Dimensions int
}

// NewOpenAIProvider creates a provider. A missing API key is a
// configuration error.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, ragerr.Configf("OPENAI_API_KEY is not set")
	}
	if opts.Model == "" {
		opts.Model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	dimension, shortened, err := ResolveDimension(opts.Model, opts.Dimensions)
	if err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIProvider{
		client:     openai.NewClient(reqOpts...),
		model:      opts.Model,
		dimension:  dimension,
		shortened:  shortened,
		newBackOff: defaultBackOff,
	}, nil
}

// ResolveDimension returns the vector size model produces when asked for
// dimensions (0 for the native size), and whether that requires a shortened
// request.
func ResolveDimension(model string, dimensions int) (int, bool, error) {
	native, known := modelDimensions[model]
	switch {
	case dimensions > 0 && strings.HasPrefix(model, "text-embedding-3-"):
		if dimensions > native {
			return 0, false, ragerr.Configf("model %s supports at most %d dimensions, got %d", model, native, dimensions)
		}
		return dimensions, dimensions != native, nil
	case dimensions > 0 && !known:
		return dimensions, false, nil
	case dimensions > 0 && dimensions != native:
		return 0, false, ragerr.Configf("model %s does not support a custom dimension", model)
	case !known:
		return 0, false, ragerr.Configf("unknown embedding model %s: set EMBEDDING_DIMENSIONS", model)
	}
	return native, false, nil
}

// Unconfigured stands in for a provider whose credential is missing. It
// knows its model and dimension, so an index can still be opened, but every
// Create fails with a configuration error.
type Unconfigured struct {
	ModelName string
	Dim       int
}

func (u Unconfigured) Model() string  { return u.ModelName }
func (u Unconfigured) Dimension() int { return u.Dim }

func (u Unconfigured) Create(context.Context, []string) ([][]float32, error) {
	return nil, ragerr.Configf("OPENAI_API_KEY is not set")
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (p *OpenAIProvider) Model() string  { return p.model }
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Create embeds texts in a single request.
func (p *OpenAIProvider) Create(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(p.model),
	}
	if p.shortened {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	var embeddings [][]float32
	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
		}

		embeddings = make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(texts) {
				return backoff.Permanent(fmt.Errorf("embedding index %d out of range", data.Index))
			}
			embeddings[data.Index] = toFloat32(data.Embedding)
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
