// Package source produces the text files of a repository for indexing.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
)

// Ref identifies a repository and the branch to read.
// An empty Branch means the repository's default branch.
type Ref struct {
	Owner  string
	Name   string
	Branch string
}

// ParseRef parses "owner/name" into a Ref.
func ParseRef(s, branch string) (Ref, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	ref := Ref{Owner: owner, Name: name, Branch: branch}
	if !ok {
		return Ref{}, fmt.Errorf("%w: repository must be owner/name, got %q", ragerr.ErrConfiguration, s)
	}
	if err := ref.Validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Validate checks that owner and name are present and slash-free.
func (r Ref) Validate() error {
	if r.Owner == "" || r.Name == "" || strings.Contains(r.Owner, "/") || strings.Contains(r.Name, "/") {
		return fmt.Errorf("%w: invalid repository %q", ragerr.ErrConfiguration, r.Owner+"/"+r.Name)
	}
	return nil
}

// Namespace returns the index namespace for the repository: "owner/name",
// lower-cased because GitHub repository names are case-insensitive.
func (r Ref) Namespace() string {
	return strings.ToLower(r.Owner + "/" + r.Name)
}

func (r Ref) String() string {
	if r.Branch == "" {
		return r.Owner + "/" + r.Name
	}
	return r.Owner + "/" + r.Name + "@" + r.Branch
}

// SourceFile is one decodable text file that passed selection.
type SourceFile struct {
	Path     string // slash-separated, relative to the repository root
	Content  string
	Language Language
}

// Listing is the result of loading a repository.
type Listing struct {
	Files []SourceFile
	// Revision is the commit SHA the files were read at, when known.
	Revision string
	// Excluded counts files rejected by the selector.
	Excluded int
	// Undecodable counts files skipped because they are not text.
	Undecodable int
}

// Source loads the files of a repository.
type Source interface {
	Load(ctx context.Context, ref Ref) (*Listing, error)
}
