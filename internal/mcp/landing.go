package mcp

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>repo-rag</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #f8fafc; color: #0f172a; max-width: 640px; margin: 3rem auto; padding: 0 1rem; }
  h1 { font-size: 1.6rem; margin-bottom: 0.25rem; }
  .muted { color: #64748b; }
  h2 { font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.08em; color: #64748b; margin-top: 2rem; }
  pre { background: #0f172a; color: #e2e8f0; border-radius: 6px; padding: 0.9rem; overflow-x: auto; }
  code { font-family: "SF Mono", Menlo, monospace; font-size: 0.85rem; }
  dt { font-family: "SF Mono", Menlo, monospace; color: #4338ca; margin-top: 0.6rem; }
  dd { margin-left: 0; }
</style>
</head>
<body>
  <h1>repo-rag</h1>
  <p class="muted">Ingest a GitHub repository, then ask questions against its code and docs over the Model Context Protocol.</p>

  <h2>Connect</h2>
  <pre><code>claude mcp add repo-rag --transport http {{.Origin}}/mcp</code></pre>

  <h2>Tools</h2>
  <dl>
    <dt>ingest_repository</dt><dd>Chunk, embed and index owner/name.</dd>
    <dt>ask</dt><dd>Top-k chunks for a question.</dd>
    <dt>get_index_status</dt><dd>Entry count, model, revision and staleness.</dd>
    <dt>clear_namespace</dt><dd>Drop a repository from the index.</dd>
  </dl>

  <h2>Active repository</h2>
  <p>{{if .Active}}<code>{{.Active}}</code>{{else}}<span class="muted">none yet</span>{{end}}</p>

  <h2>Endpoints</h2>
  <p><a href="/mcp"><code>/mcp</code></a> MCP Streamable HTTP<br><a href="/health"><code>/health</code></a> health check</p>
</body>
</html>`))

// NewLandingHandler serves the landing page at /. The page shows the active
// repository of s.
func NewLandingHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		data := struct {
			Origin string
			Active string
		}{
			Origin: scheme + "://" + r.Host,
			Active: s.Session().ActiveNamespace(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = landingTemplate.Execute(w, data)
	}
}
