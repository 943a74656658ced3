// Package health provides health check implementations for the gateway's
// external dependencies.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds each dependency probe.
const checkTimeout = 2 * time.Second

// Checker probes a single dependency.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves an aggregate health endpoint over named checkers.
type Handler struct {
	checks map[string]Checker
}

// NewHandler creates a health handler. Checks with a nil checker are skipped,
// so optional dependencies can be wired conditionally.
func NewHandler() *Handler {
	return &Handler{checks: make(map[string]Checker)}
}

// Add registers a named checker. Nil checkers are ignored.
func (h *Handler) Add(name string, c Checker) {
	if c == nil {
		return
	}
	h.checks[name] = c
}

// ServeHTTP runs every check and reports per-dependency status. Any failing
// check turns the response into a 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type result struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	results := make(map[string]result, len(h.checks))
	healthy := true

	for name, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.HealthCheck(ctx)
		cancel()

		if err != nil {
			healthy = false
			results[name] = result{Status: "unhealthy", Error: err.Error()}
		} else {
			results[name] = result{Status: "ok"}
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": overall,
		"checks": results,
	})
}
