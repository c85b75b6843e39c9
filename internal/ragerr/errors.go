// Package ragerr defines the error taxonomy shared by the ingestion and query paths.
package ragerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks fatal setup problems: missing credentials,
	// vector dimension mismatches, invalid chunk settings, model mixing.
	ErrConfiguration = errors.New("configuration error")

	// ErrPrecondition marks a user-facing ordering problem, such as asking
	// a question before any repository was ingested in the session.
	ErrPrecondition = errors.New("precondition failed")
)

// Stage names the pipeline step a capability failure happened in.
type Stage string

const (
	StageLoad       Stage = "load"
	StageEmbed      Stage = "embed"
	StageUpsert     Stage = "upsert"
	StageEmbedQuery Stage = "embed-query"
	StageRetrieve   Stage = "retrieve"
)

// CapabilityError reports a failed call to an external capability
// (repository source, embedding service, vector index) together with the
// chunks or entries it affected.
type CapabilityError struct {
	Stage     Stage
	Namespace string
	// Affected holds "path#ordinal" references of the chunks that were not
	// processed because of this failure.
	Affected []string
	Err      error
}

func (e *CapabilityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Stage)
	if e.Namespace != "" {
		fmt.Fprintf(&b, " for namespace %s", e.Namespace)
	}
	if n := len(e.Affected); n > 0 {
		fmt.Fprintf(&b, " (%d chunks affected)", n)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Configf returns an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// ChunkRef formats the reference used in CapabilityError.Affected.
func ChunkRef(path string, ordinal int) string {
	return fmt.Sprintf("%s#%d", path, ordinal)
}
