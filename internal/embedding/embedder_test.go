package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
)

// fakeProvider encodes each text's length into a vector and fails any call
// whose first text is listed in failOn.
type fakeProvider struct {
	dim    int
	failOn map[string]error

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Model() string  { return "fake-model" }
func (f *fakeProvider) Dimension() int { return f.dim }

func (f *fakeProvider) Create(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err, ok := f.failOn[texts[0]]; ok {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func TestEmbedBatch_PreservesInputOrder(t *testing.T) {
	p := &fakeProvider{dim: 3}
	e := NewEmbedder(p, 2, 3, nil)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, v := range vectors {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
	assert.Equal(t, 3, p.calls)
}

func TestEmbedBatch_Empty(t *testing.T) {
	p := &fakeProvider{dim: 3}
	e := NewEmbedder(p, 0, 0, nil)

	vectors, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, 0, p.calls)
}

func TestEmbedBatch_ReportsEveryFailedBatch(t *testing.T) {
	boom := errors.New("service unavailable")
	p := &fakeProvider{dim: 3, failOn: map[string]error{"c": boom, "e": boom}}
	e := NewEmbedder(p, 2, 2, nil)

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 3, batchErr.Total)
	require.Len(t, batchErr.Failed, 2)
	assert.Equal(t, 2, batchErr.Failed[0].Start)
	assert.Equal(t, 4, batchErr.Failed[0].End)
	assert.Equal(t, 4, batchErr.Failed[1].Start)
	assert.Equal(t, 5, batchErr.Failed[1].End)

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "2 of 3 batches")
	assert.Equal(t, 3, p.calls, "a failure does not stop the other batches")
}

// shortProvider returns vectors shorter than it advertises.
type shortProvider struct{ fakeProvider }

func (s *shortProvider) Dimension() int { return s.dim + 1 }

func TestEmbed_DimensionMismatchIsConfigurationError(t *testing.T) {
	e := NewEmbedder(&shortProvider{fakeProvider{dim: 3}}, 0, 0, nil)

	_, err := e.Embed(context.Background(), "query")
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)
}

func TestEmbed_Single(t *testing.T) {
	e := NewEmbedder(&fakeProvider{dim: 4}, 0, 0, nil)

	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.Equal(t, float32(5), v[0])
	assert.Equal(t, "fake-model", e.Model())
	assert.Equal(t, 4, e.Dimension())
}
