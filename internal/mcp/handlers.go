package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/repo-rag/internal/query"
	"github.com/mike-a-ellis/repo-rag/internal/rag"
	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/storage"
)

// makeIngestHandler creates the ingest_repository tool handler. A successful
// ingestion becomes the session's active repository.
func makeIngestHandler(svc *rag.Service, sess *rag.Session) func(
	context.Context, *mcp.CallToolRequest, IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		summary, err := svc.Ingest(ctx, sess, input.Owner, input.Name, input.Branch)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("ingest failed: %w", err)
		}

		return nil, IngestOutput{
			Namespace:       summary.Namespace,
			Revision:        summary.Revision,
			DocumentsLoaded: summary.DocumentsLoaded,
			ChunksCreated:   summary.ChunksCreated,
			EntriesWritten:  summary.EntriesWritten,
			FilesSkipped: map[string]int{
				"excluded":    summary.FilesSkipped.Excluded,
				"undecodable": summary.FilesSkipped.Undecodable,
				"unsupported": summary.FilesSkipped.Unsupported,
			},
			DurationMS: summary.Duration.Milliseconds(),
		}, nil
	}
}

// makeAskHandler creates the ask tool handler.
// Asking before anything was ingested is reported in Message, not as a
// tool failure.
func makeAskHandler(svc *rag.Service, sess *rag.Session) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		if strings.TrimSpace(input.Question) == "" {
			return nil, AskOutput{Matches: []MatchResult{}, Message: "Question is empty."}, nil
		}
		topK := input.TopK
		if topK > 20 {
			topK = 20
		}

		var result *query.Result
		var err error
		if input.Namespace != "" {
			result, err = svc.AskNamespace(ctx, input.Namespace, input.Question, topK)
		} else {
			result, err = svc.Ask(ctx, sess, input.Question, topK)
		}

		if errors.Is(err, ragerr.ErrPrecondition) {
			return nil, AskOutput{
				Matches: []MatchResult{},
				Message: "No repository has been ingested yet. Call ingest_repository first or pass a namespace.",
			}, nil
		}
		if err != nil {
			return nil, AskOutput{}, fmt.Errorf("ask failed: %w", err)
		}

		output := AskOutput{Namespace: result.Namespace, Matches: toMatchResults(result.Matches)}
		if len(output.Matches) == 0 {
			output.Message = "No matching chunks found."
		}
		return nil, output, nil
	}
}

func toMatchResults(matches []storage.Match) []MatchResult {
	results := make([]MatchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, MatchResult{
			Path:    m.Metadata.SourcePath,
			Ordinal: m.Metadata.Ordinal,
			Section: m.Metadata.Section,
			Score:   m.Score,
			Text:    m.Text,
		})
	}
	return results
}

// makeStatusHandler creates the get_index_status tool handler. When a
// staleness checker is configured the indexed revision is compared with the
// default branch; a failed comparison is reported in Message.
func makeStatusHandler(svc *rag.Service, sess *rag.Session, staleness StalenessChecker) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		active := sess.ActiveNamespace()
		namespace := input.Namespace
		if namespace == "" {
			namespace = active
		}
		if namespace == "" {
			return nil, StatusOutput{Message: "No repository has been ingested yet."}, nil
		}

		status, err := svc.Status(ctx, namespace)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("status failed: %w", err)
		}

		output := StatusOutput{
			Namespace: status.Namespace,
			Entries:   status.Entries,
			Model:     status.Model,
			Revision:  status.Revision,
			IndexedAt: status.IndexedAt,
			Active:    status.Namespace == active,
		}
		if status.Entries == 0 {
			output.Message = "Repository is not indexed."
			return nil, output, nil
		}

		if staleness != nil && status.Revision != "" {
			owner, name, _ := strings.Cut(status.Namespace, "/")
			behind, err := staleness.CommitsBehind(ctx, owner, name, status.Revision)
			if err != nil {
				output.Message = fmt.Sprintf("Could not check staleness: %v", err)
			} else {
				output.CommitsBehind = behind
				output.Stale = behind > 0
			}
		}
		return nil, output, nil
	}
}

// makeClearHandler creates the clear_namespace tool handler.
func makeClearHandler(svc *rag.Service, sess *rag.Session) func(
	context.Context, *mcp.CallToolRequest, ClearInput,
) (*mcp.CallToolResult, ClearOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ClearInput) (
		*mcp.CallToolResult, ClearOutput, error,
	) {
		if err := svc.Clear(ctx, sess, input.Namespace); err != nil {
			return nil, ClearOutput{}, fmt.Errorf("clear failed: %w", err)
		}
		status, err := svc.Status(ctx, input.Namespace)
		if err != nil {
			return nil, ClearOutput{}, fmt.Errorf("clear failed: %w", err)
		}
		return nil, ClearOutput{Namespace: status.Namespace, Cleared: status.Entries == 0}, nil
	}
}
