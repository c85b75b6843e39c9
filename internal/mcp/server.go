package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/repo-rag/internal/rag"
)

// StalenessChecker reports how far an indexed revision trails the
// repository's default branch. The GitHub client implements it.
type StalenessChecker interface {
	CommitsBehind(ctx context.Context, owner, name, revision string) (int, error)
}

// Config holds server dependencies.
type Config struct {
	Service *rag.Service
	// Staleness is optional; without it get_index_status skips the
	// commits-behind check.
	Staleness StalenessChecker
	Version   string
}

// Server exposes one rag.Session over MCP. Every client of a Server shares
// its active repository.
type Server struct {
	server  *mcp.Server
	session *rag.Session
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "repo-rag", Version: version}, nil)
	sess := rag.NewSession()

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_repository",
		Description: "Index a GitHub repository for semantic retrieval. Source files are chunked, embedded and stored under the owner/name namespace, which becomes the active repository for ask.",
	}, makeIngestHandler(cfg.Service, sess))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Retrieve the chunks of an ingested repository most relevant to a question. Searches the active repository unless a namespace is given.",
	}, makeAskHandler(cfg.Service, sess))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report the entry count, embedding model, indexed revision and staleness of an ingested repository.",
	}, makeStatusHandler(cfg.Service, sess, cfg.Staleness))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_namespace",
		Description: "Remove every indexed chunk of a repository.",
	}, makeClearHandler(cfg.Service, sess))

	return &Server{server: server, session: sess}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Session returns the session the tools operate on.
func (s *Server) Session() *rag.Session {
	return s.session
}

// HTTPHandler serves the MCP server over Streamable HTTP. With stateless set
// the SDK keeps no per-connection state, so server-to-client requests are
// unavailable.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}
