// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/typepulse/typepulse/internal/adapters/repository"
)

// StatsDependencies defines the interface for the stats endpoint.
type StatsDependencies interface {
	Totals(ctx context.Context) (repository.Totals, error)
	GetStats() map[string]interface{}
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps StatsDependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type statsResponse struct {
	Totals  repository.Totals      `json:"totals"`
	Runtime map[string]interface{} `json:"runtime"`
}

// HandleStats handles GET /v1/stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	totals, err := h.deps.Totals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Totals:  totals,
		Runtime: h.deps.GetStats(),
	})
}
