package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mike-a-ellis/repo-rag/internal/indexer"
	"github.com/mike-a-ellis/repo-rag/internal/query"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/source"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// Status describes what a namespace holds.
type Status struct {
	Namespace string    `json:"namespace"`
	Entries   uint64    `json:"entries"`
	Model     string    `json:"model,omitempty"`
	Revision  string    `json:"revision,omitempty"`
	IndexedAt time.Time `json:"indexed_at,omitzero"`
}

// Service ties ingestion and retrieval to sessions.
type Service struct {
	pipeline *indexer.Pipeline
	engine   *query.Engine
	index    storage.Index
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(pipeline *indexer.Pipeline, engine *query.Engine, index storage.Index, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pipeline: pipeline, engine: engine, index: index, logger: logger}
}

// Ingest indexes owner/name at branch and, on success, makes its namespace
// the session's active one.
func (s *Service) Ingest(ctx context.Context, sess *Session, owner, name, branch string) (*indexer.Summary, error) {
	ref := source.Ref{Owner: strings.TrimSpace(owner), Name: strings.TrimSpace(name), Branch: strings.TrimSpace(branch)}
	summary, err := s.pipeline.Ingest(ctx, ref)
	if err != nil {
		return summary, err
	}
	if sess != nil {
		sess.setActive(summary.Namespace)
	}
	return summary, nil
}

// Ask queries the session's active namespace. Asking before any successful
// ingestion in the session is a precondition error.
func (s *Service) Ask(ctx context.Context, sess *Session, text string, k int) (*query.Result, error) {
	namespace := ""
	if sess != nil {
		namespace = sess.ActiveNamespace()
	}
	if namespace == "" {
		return nil, fmt.Errorf("%w: no repository has been ingested in this session", ragerr.ErrPrecondition)
	}
	return s.engine.Query(ctx, text, namespace, k)
}

// AskNamespace queries an explicit namespace ("owner/name"), independent of
// any session.
func (s *Service) AskNamespace(ctx context.Context, namespace, text string, k int) (*query.Result, error) {
	namespace, err := normalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}
	return s.engine.Query(ctx, text, namespace, k)
}

// Status reports the entry count and provenance of a namespace.
func (s *Service) Status(ctx context.Context, namespace string) (*Status, error) {
	namespace, err := normalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}

	count, err := s.index.Count(ctx, namespace)
	if err != nil {
		return nil, &ragerr.CapabilityError{Stage: ragerr.StageRetrieve, Namespace: namespace, Err: err}
	}
	status := &Status{Namespace: namespace, Entries: count}
	if count == 0 {
		return status, nil
	}

	info, err := s.index.NamespaceInfo(ctx, namespace)
	if err != nil {
		return nil, &ragerr.CapabilityError{Stage: ragerr.StageRetrieve, Namespace: namespace, Err: err}
	}
	if info != nil {
		status.Model = info.Model
		status.Revision = info.Revision
		status.IndexedAt = info.IndexedAt
	}
	return status, nil
}

// Clear removes every entry of a namespace. If it was the session's active
// namespace the session forgets it.
func (s *Service) Clear(ctx context.Context, sess *Session, namespace string) error {
	namespace, err := normalizeNamespace(namespace)
	if err != nil {
		return err
	}
	if err := s.index.ClearNamespace(ctx, namespace); err != nil {
		return &ragerr.CapabilityError{Stage: ragerr.StageUpsert, Namespace: namespace, Err: err}
	}
	if sess != nil {
		sess.forget(namespace)
	}
	s.logger.Info("Namespace cleared", "namespace", namespace)
	return nil
}

// normalizeNamespace accepts "owner/name" in any case.
func normalizeNamespace(namespace string) (string, error) {
	ref, err := source.ParseRef(namespace, "")
	if err != nil {
		return "", err
	}
	return ref.Namespace(), nil
}
