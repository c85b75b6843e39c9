package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/repo-rag/internal/embedding"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// keywordProvider maps known texts to fixed vectors.
type keywordProvider struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (p *keywordProvider) Model() string  { return "kw" }
func (p *keywordProvider) Dimension() int { return 3 }

func (p *keywordProvider) Create(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := p.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func seeded(t *testing.T) *storage.MemoryIndex {
	t.Helper()
	idx := storage.NewMemoryIndex(3, nil)
	_, err := idx.Upsert(context.Background(), "acme/widgets", []storage.Entry{
		{Vector: []float32{1, 0, 0}, Text: "func Login()", Metadata: storage.EntryMetadata{SourcePath: "auth.go", Model: "kw"}},
		{Vector: []float32{0, 1, 0}, Text: "func Render()", Metadata: storage.EntryMetadata{SourcePath: "ui.go", Model: "kw"}},
		{Vector: []float32{0.9, 0.1, 0}, Text: "func Session()", Metadata: storage.EntryMetadata{SourcePath: "session.go", Model: "kw"}},
	})
	require.NoError(t, err)
	_, err = idx.Upsert(context.Background(), "acme/other", []storage.Entry{
		{Vector: []float32{1, 0, 0}, Text: "other repo login", Metadata: storage.EntryMetadata{Model: "kw"}},
	})
	require.NoError(t, err)
	return idx
}

func TestQuery_RanksWithinNamespace(t *testing.T) {
	p := &keywordProvider{vectors: map[string][]float32{"how does authentication work?": {1, 0, 0}}}
	e := NewEngine(embedding.NewEmbedder(p, 0, 0, nil), seeded(t), 0, nil)

	result, err := e.Query(context.Background(), "how does authentication work?", "acme/widgets", 2)
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", result.Namespace)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "func Login()", result.Matches[0].Text)
	assert.Equal(t, "func Session()", result.Matches[1].Text)
	for _, m := range result.Matches {
		assert.NotEqual(t, "other repo login", m.Text)
	}
}

func TestQuery_DefaultTopK(t *testing.T) {
	p := &keywordProvider{}
	e := NewEngine(embedding.NewEmbedder(p, 0, 0, nil), seeded(t), 2, nil)

	result, err := e.Query(context.Background(), "anything", "acme/widgets", 0)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
}

func TestQuery_EmptyNamespace(t *testing.T) {
	p := &keywordProvider{}
	e := NewEngine(embedding.NewEmbedder(p, 0, 0, nil), storage.NewMemoryIndex(3, nil), 0, nil)

	result, err := e.Query(context.Background(), "how does authentication work?", "acme/empty", 5)
	require.NoError(t, err)
	require.NotNil(t, result.Matches)
	assert.Empty(t, result.Matches)
	assert.Equal(t, 0, p.calls)
}

func TestQuery_ModelMismatch(t *testing.T) {
	idx := storage.NewMemoryIndex(3, nil)
	_, err := idx.Upsert(context.Background(), "ns", []storage.Entry{{Vector: []float32{1, 0, 0}, Metadata: storage.EntryMetadata{Model: "other"}}})
	require.NoError(t, err)

	e := NewEngine(embedding.NewEmbedder(&keywordProvider{}, 0, 0, nil), idx, 0, nil)
	_, err = e.Query(context.Background(), "q", "ns", 1)
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)
}

func TestQuery_EmbeddingFailure(t *testing.T) {
	p := &keywordProvider{err: errors.New("503")}
	e := NewEngine(embedding.NewEmbedder(p, 0, 0, nil), seeded(t), 0, nil)

	_, err := e.Query(context.Background(), "q", "acme/widgets", 1)
	var capErr *ragerr.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, ragerr.StageEmbedQuery, capErr.Stage)
	assert.Equal(t, "acme/widgets", capErr.Namespace)
}

func TestQuery_EmptyText(t *testing.T) {
	e := NewEngine(embedding.NewEmbedder(&keywordProvider{}, 0, 0, nil), seeded(t), 0, nil)
	_, err := e.Query(context.Background(), "   ", "acme/widgets", 1)
	assert.ErrorIs(t, err, ragerr.ErrPrecondition)
}
