// Package github loads repository files through the GitHub contents API.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"sync"

	"github.com/google/go-github/v81/github"
	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/repo-rag/internal/selector"
	"github.com/mike-a-ellis/repo-rag/internal/source"
)

// DefaultFetchConcurrency bounds parallel file downloads.
const DefaultFetchConcurrency = 4

// Fetcher implements source.Source for GitHub repositories.
type Fetcher struct {
	client      *Client
	selector    *selector.Selector
	concurrency int
	logger      *slog.Logger
}

// NewFetcher creates a new repository fetcher
func NewFetcher(client *Client, sel *selector.Selector, logger *slog.Logger) *Fetcher {
	if sel == nil {
		sel = selector.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:      client,
		selector:    sel,
		concurrency: DefaultFetchConcurrency,
		logger:      logger,
	}
}

// Load lists every selected file on ref's branch and downloads its content.
func (f *Fetcher) Load(ctx context.Context, ref source.Ref) (*source.Listing, error) {
	listing := &source.Listing{}

	revision, err := f.LatestCommitSHA(ctx, ref)
	if err != nil {
		return nil, err
	}
	listing.Revision = revision
	f.logger.Info("Listing repository", "repository", ref.String(), "revision", revision)

	paths, err := f.listRecursive(ctx, ref, "", listing)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Found files", "count", len(paths), "excluded", listing.Excluded)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, p := range paths {
		g.Go(func() error {
			content, err := f.fetchFile(gctx, ref, p)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if !selector.Decodable(content) {
				f.logger.Debug("Skipped undecodable file", "path", p)
				listing.Undecodable++
				return nil
			}
			listing.Files = append(listing.Files, source.SourceFile{
				Path:     p,
				Content:  string(content),
				Language: source.DetectLanguage(p),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].Path < listing.Files[j].Path
	})
	return listing, nil
}

// listRecursive walks the contents API tree. Blocked directories are never
// requested.
func (f *Fetcher) listRecursive(ctx context.Context, ref source.Ref, dir string, listing *source.Listing) ([]string, error) {
	var files []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		ref.Owner,
		ref.Name,
		dir,
		f.contentOptions(ref),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %q in %s: %w", dir, ref, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemPath := path.Join(dir, item.GetName())

		switch item.GetType() {
		case "file":
			if !f.selector.Include(itemPath) {
				listing.Excluded++
				continue
			}
			files = append(files, itemPath)

		case "dir":
			if f.selector.SkipDir(item.GetName()) {
				f.logger.Debug("Pruned directory", "path", itemPath)
				continue
			}
			sub, err := f.listRecursive(ctx, ref, itemPath, listing)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
		// symlinks and submodules are not followed
	}

	return files, nil
}

// fetchFile returns the raw bytes of one file. Files over the contents API
// inline limit come back without content and are downloaded instead.
func (f *Fetcher) fetchFile(ctx context.Context, ref source.Ref, p string) ([]byte, error) {
	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, ref.Owner, ref.Name, p, f.contentOptions(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", p, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", p)
	}

	if fileContent.GetEncoding() != "none" && fileContent.Content != nil {
		content, err := fileContent.GetContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", p, err)
		}
		return []byte(content), nil
	}

	rc, _, err := f.client.Repositories.DownloadContents(ctx, ref.Owner, ref.Name, p, f.contentOptions(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", p, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LatestCommitSHA returns the head commit of ref's branch, or of the default
// branch when none is set.
func (f *Fetcher) LatestCommitSHA(ctx context.Context, ref source.Ref) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		ref.Owner,
		ref.Name,
		&github.CommitsListOptions{
			SHA: ref.Branch,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit of %s: %w", ref, err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for %s", ref)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return commits[0].GetSHA(), nil
}

func (f *Fetcher) contentOptions(ref source.Ref) *github.RepositoryContentGetOptions {
	if ref.Branch == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: ref.Branch}
}
