package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/repo-rag/internal/selector"
	"github.com/mike-a-ellis/repo-rag/internal/source"
)

type entry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
}

// newTestFetcher serves a tiny repository:
//
//	README.md
//	main.go
//	icon.bin (binary)
//	docs/guide.md
//	node_modules/ (must never be listed)
func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()

	dirs := map[string][]entry{
		"": {
			{Type: "file", Name: "README.md", Path: "README.md"},
			{Type: "file", Name: "main.go", Path: "main.go"},
			{Type: "file", Name: "icon.bin", Path: "icon.bin"},
			{Type: "dir", Name: "docs", Path: "docs"},
			{Type: "dir", Name: "node_modules", Path: "node_modules"},
			{Type: "symlink", Name: "link", Path: "link"},
		},
		"docs": {
			{Type: "file", Name: "guide.md", Path: "docs/guide.md"},
		},
	}
	files := map[string]string{
		"README.md":     "# Widgets\n\nA widget library.\n",
		"main.go":       "package main\n\nfunc main() {}\n",
		"icon.bin":      "\x00\x01\x02\x03",
		"docs/guide.md": "## Guide\n\nUse widgets.\n",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("sha"))
		_ = json.NewEncoder(w).Encode([]map[string]string{{"sha": "abc123"}})
	})
	mux.HandleFunc("/repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		p := strings.Trim(strings.TrimPrefix(r.URL.Path, "/repos/acme/widgets/contents/"), "/")

		if strings.HasPrefix(p, "node_modules") {
			t.Errorf("blocked directory was requested: %s", p)
			http.NotFound(w, r)
			return
		}
		if listing, ok := dirs[p]; ok {
			_ = json.NewEncoder(w).Encode(listing)
			return
		}
		if content, ok := files[p]; ok {
			_ = json.NewEncoder(w).Encode(entry{
				Type:     "file",
				Name:     p[strings.LastIndex(p, "/")+1:],
				Path:     p,
				Encoding: "base64",
				Content:  base64.StdEncoding.EncodeToString([]byte(content)),
			})
			return
		}
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = baseURL

	return NewFetcher(&Client{Client: gh}, selector.New(), nil)
}

func TestFetcherLoad(t *testing.T) {
	f := newTestFetcher(t)

	listing, err := f.Load(context.Background(), source.Ref{Owner: "acme", Name: "widgets", Branch: "main"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", listing.Revision)
	assert.Equal(t, 1, listing.Undecodable)

	require.Len(t, listing.Files, 3)
	assert.Equal(t, "README.md", listing.Files[0].Path)
	assert.Equal(t, "# Widgets\n\nA widget library.\n", listing.Files[0].Content)
	assert.Equal(t, source.LanguageMarkdown, listing.Files[0].Language)
	assert.Equal(t, "docs/guide.md", listing.Files[1].Path)
	assert.Equal(t, "main.go", listing.Files[2].Path)
	assert.Equal(t, source.LanguageGo, listing.Files[2].Language)
}

func TestFetcherLoadMissingRepository(t *testing.T) {
	f := newTestFetcher(t)

	_, err := f.Load(context.Background(), source.Ref{Owner: "acme", Name: "missing", Branch: "main"})
	assert.Error(t, err)
}
