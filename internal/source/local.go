package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mike-a-ellis/repo-rag/internal/selector"
)

// Local reads a repository that is already on disk (a clone, a checkout or
// any directory tree). Ref.Branch is informational only.
type Local struct {
	fsys     fs.FS
	selector *selector.Selector
	logger   *slog.Logger
}

// NewLocal creates a Local source over fsys, typically os.DirFS(root).
func NewLocal(fsys fs.FS, sel *selector.Selector, logger *slog.Logger) *Local {
	if sel == nil {
		sel = selector.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{fsys: fsys, selector: sel, logger: logger}
}

// Load walks the tree, pruning blocked directories before they are visited.
func (l *Local) Load(ctx context.Context, ref Ref) (*Listing, error) {
	listing := &Listing{}

	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if p != "." && l.selector.SkipDir(d.Name()) {
				l.logger.Debug("Pruned directory", "path", p)
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if !l.selector.Include(p) {
			listing.Excluded++
			return nil
		}

		// Paths are stored as index payload, which must be valid UTF-8.
		if !utf8.ValidString(p) {
			l.logger.Warn("Skipped file with undecodable name", "path", strings.ToValidUTF8(p, "\uFFFD"))
			listing.Undecodable++
			return nil
		}

		content, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			l.logger.Warn("Skipped unreadable file", "path", p, "error", err)
			listing.Undecodable++
			return nil
		}
		if !selector.Decodable(content) {
			l.logger.Debug("Skipped undecodable file", "path", p)
			listing.Undecodable++
			return nil
		}

		listing.Files = append(listing.Files, SourceFile{
			Path:     p,
			Content:  string(content),
			Language: DetectLanguage(p),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", ref, err)
	}

	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].Path < listing.Files[j].Path
	})

	l.logger.Info("Loaded local repository",
		"repository", ref.String(),
		"files", len(listing.Files),
		"excluded", listing.Excluded,
		"undecodable", listing.Undecodable,
	)
	return listing, nil
}
