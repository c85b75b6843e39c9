package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
)

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDistanceMismatch  = errors.New("similarity distance mismatch")
)

// dimensionError is fatal: vectors of different sizes cannot share an index.
func dimensionError(what string, got, want int) error {
	return fmt.Errorf("%w: %w: %s has %d dimensions, index expects %d",
		ragerr.ErrConfiguration, ErrDimensionMismatch, what, got, want)
}

// distanceError is fatal: scores from an existing collection would not
// follow the configured distance.
func distanceError(collection, got, want string) error {
	return fmt.Errorf("%w: %w: collection %s uses %s distance, configured %s",
		ragerr.ErrConfiguration, ErrDistanceMismatch, collection, got, want)
}

// FailedRange is a [Start, End) range of entries that were not written.
type FailedRange struct {
	Start int
	End   int
	Err   error
}

// UpsertError reports the entry ranges an Upsert could not write. Entries
// outside these ranges were written.
type UpsertError struct {
	Failed []FailedRange
}

func (e *UpsertError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("entries [%d,%d): %v", f.Start, f.End, f.Err)
	}
	return "upsert failed: " + strings.Join(parts, "; ")
}

func (e *UpsertError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}
