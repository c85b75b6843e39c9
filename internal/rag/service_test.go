package rag

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/repo-rag/internal/chunker"
	"github.com/mike-a-ellis/repo-rag/internal/embedding"
	"github.com/mike-a-ellis/repo-rag/internal/indexer"
	"github.com/mike-a-ellis/repo-rag/internal/query"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/selector"
	"github.com/mike-a-ellis/repo-rag/internal/source"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// bagProvider embeds text as counts of a few keywords.
type bagProvider struct{}

var keywords = []string{"auth", "render", "config"}

func (bagProvider) Model() string  { return "bag" }
func (bagProvider) Dimension() int { return len(keywords) + 1 }

func (bagProvider) Create(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(keywords)+1)
		for j, kw := range keywords {
			v[j] = float32(strings.Count(strings.ToLower(t), kw))
		}
		v[len(keywords)] = 0.1
		out[i] = v
	}
	return out, nil
}

func newService(t *testing.T, fsys fstest.MapFS) (*Service, storage.Index) {
	t.Helper()
	index := storage.NewMemoryIndex(len(keywords)+1, nil)
	ch, err := chunker.New(200, 20)
	require.NoError(t, err)
	embedder := embedding.NewEmbedder(bagProvider{}, 0, 0, nil)

	pipeline := indexer.NewPipeline(
		source.NewLocal(fsys, selector.New(), nil),
		ch,
		embedder,
		indexer.NewWriter(index, indexer.WriterOptions{Model: "bag", Credential: "sk-test"}, nil),
		nil,
	)
	return NewService(pipeline, query.NewEngine(embedder, index, 5, nil), index, nil), index
}

var repo = fstest.MapFS{
	"auth/login.go":  {Data: []byte("package auth\n\n// Login checks auth tokens.\nfunc Login() {}\n")},
	"ui/render.go":   {Data: []byte("package ui\n\n// Render draws the render tree.\nfunc Render() {}\n")},
	"config/conf.go": {Data: []byte("package config\n\n// Load reads config files.\nfunc Load() {}\n")},
}

func TestAsk_BeforeIngestIsPreconditionError(t *testing.T) {
	svc, _ := newService(t, repo)

	_, err := svc.Ask(context.Background(), NewSession(), "how does authentication work?", 0)
	assert.ErrorIs(t, err, ragerr.ErrPrecondition)

	_, err = svc.Ask(context.Background(), nil, "anything", 0)
	assert.ErrorIs(t, err, ragerr.ErrPrecondition)
}

func TestIngestThenAsk(t *testing.T) {
	svc, _ := newService(t, repo)
	sess := NewSession()
	ctx := context.Background()

	summary, err := svc.Ingest(ctx, sess, "Acme", "Widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.DocumentsLoaded)
	assert.Equal(t, 3, summary.ChunksCreated)
	assert.Equal(t, "acme/widgets", sess.ActiveNamespace())

	result, err := svc.Ask(ctx, sess, "how does auth work?", 1)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "auth/login.go", result.Matches[0].Metadata.SourcePath)

	result, err = svc.AskNamespace(ctx, "ACME/widgets", "render", 1)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "ui/render.go", result.Matches[0].Metadata.SourcePath)
}

func TestAskNamespace_NeverIngested(t *testing.T) {
	svc, _ := newService(t, repo)

	result, err := svc.AskNamespace(context.Background(), "nobody/nothing", "how does authentication work?", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)

	_, err = svc.AskNamespace(context.Background(), "not-a-namespace", "q", 5)
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)
}

func TestFailedIngestKeepsPreviousNamespace(t *testing.T) {
	svc, _ := newService(t, repo)
	sess := NewSession()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, sess, "acme", "widgets", "")
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, sess, "", "broken", "")
	require.Error(t, err)
	assert.Equal(t, "acme/widgets", sess.ActiveNamespace())
}

func TestStatusAndClear(t *testing.T) {
	svc, _ := newService(t, repo)
	sess := NewSession()
	ctx := context.Background()

	status, err := svc.Status(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Zero(t, status.Entries)

	_, err = svc.Ingest(ctx, sess, "acme", "widgets", "")
	require.NoError(t, err)

	status, err = svc.Status(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), status.Entries)
	assert.Equal(t, "bag", status.Model)
	assert.False(t, status.IndexedAt.IsZero())

	require.NoError(t, svc.Clear(ctx, sess, "acme/widgets"))
	assert.Empty(t, sess.ActiveNamespace())

	status, err = svc.Status(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Zero(t, status.Entries)

	_, err = svc.Ask(ctx, sess, "auth", 1)
	assert.ErrorIs(t, err, ragerr.ErrPrecondition)
}
