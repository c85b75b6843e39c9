// Package mcp exposes repository ingestion and retrieval as MCP tools.
package mcp

import "time"

// IngestInput defines the input parameters for the ingest_repository tool.
type IngestInput struct {
	Owner  string `json:"owner" jsonschema:"GitHub repository owner, e.g. cloudwego"`
	Name   string `json:"name" jsonschema:"GitHub repository name, e.g. eino"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch to read; the default branch when empty"`
}

// IngestOutput summarizes an ingestion.
type IngestOutput struct {
	Namespace       string `json:"namespace"`
	Revision        string `json:"revision,omitempty"`
	DocumentsLoaded int    `json:"documents_loaded"`
	ChunksCreated   int    `json:"chunks_created"`
	EntriesWritten  int    `json:"entries_written"`
	// FilesSkipped counts files by reason: excluded, undecodable, unsupported.
	FilesSkipped map[string]int `json:"files_skipped"`
	DurationMS   int64          `json:"duration_ms"`
}

// AskInput defines the input parameters for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"Natural-language question about the repository"`
	// Namespace defaults to the repository ingested last in this session.
	Namespace string `json:"namespace,omitempty" jsonschema:"Repository to search as owner/name; defaults to the last ingested repository"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"Maximum number of chunks to return (default 5)"`
}

// AskOutput contains the ranked chunks.
type AskOutput struct {
	Namespace string        `json:"namespace,omitempty"`
	Matches   []MatchResult `json:"matches"`
	// Message provides informational context (e.g., "No matching chunks found").
	Message string `json:"message,omitempty"`
}

// MatchResult is a single retrieved chunk.
type MatchResult struct {
	Path    string  `json:"path"`
	Ordinal int     `json:"ordinal"`
	Section string  `json:"section,omitempty"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"Repository as owner/name; defaults to the last ingested repository"`
}

// StatusOutput describes a namespace of the index.
type StatusOutput struct {
	Namespace string    `json:"namespace,omitempty"`
	Entries   uint64    `json:"entries"`
	Model     string    `json:"model,omitempty"`
	Revision  string    `json:"revision,omitempty"`
	IndexedAt time.Time `json:"indexed_at,omitzero"`
	// Active reports whether this is the session's current repository.
	Active        bool   `json:"active"`
	CommitsBehind int    `json:"commits_behind"`
	Stale         bool   `json:"stale"`
	Message       string `json:"message,omitempty"`
}

// ClearInput defines the input parameters for the clear_namespace tool.
type ClearInput struct {
	Namespace string `json:"namespace" jsonschema:"Repository to remove from the index, as owner/name"`
}

// ClearOutput confirms a cleared namespace.
type ClearOutput struct {
	Namespace string `json:"namespace"`
	Cleared   bool   `json:"cleared"`
}
