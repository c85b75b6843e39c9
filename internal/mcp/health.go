package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Index     string `json:"index"`
	Backend   string `json:"backend"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker is implemented by every storage.Index.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint. backend
// names the vector index in the response ("qdrant", "memory").
func NewHealthHandler(index HealthChecker, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Index:     "connected",
			Backend:   backend,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK
		if err := index.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Index = "disconnected"
			response.Error = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response)
	}
}
