// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/typepulse/typepulse/internal/domain/types"
)

const defaultRankingLimit = 10

// RankingsDependencies defines the interface for ranking reads.
type RankingsDependencies interface {
	SlowestKeys(ctx context.Context, n int) ([]types.KeyEntry, error)
	SlowestDigraphs(ctx context.Context, n int) ([]types.DigraphEntry, error)
	SlowestWords(ctx context.Context, n int) ([]types.WordEntry, error)
}

// RankingsHandler handles the slowest-keys/digraphs/words endpoints.
type RankingsHandler struct {
	deps     RankingsDependencies
	maxLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies, maxLimit int) *RankingsHandler {
	return &RankingsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// limit parses the optional ?limit=N parameter. Missing means the default;
// out-of-range values are rejected.
func (h *RankingsHandler) limit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultRankingLimit, nil
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 || n > h.maxLimit {
		return 0, ErrBadRequest
	}
	return n, nil
}

// HandleSlowestKeys handles GET /v1/keys/slowest?limit=N requests.
func (h *RankingsHandler) HandleSlowestKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := h.limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.SlowestKeys(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if entries == nil {
		entries = []types.KeyEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleSlowestDigraphs handles GET /v1/digraphs/slowest?limit=N requests.
func (h *RankingsHandler) HandleSlowestDigraphs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := h.limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.SlowestDigraphs(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if entries == nil {
		entries = []types.DigraphEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleSlowestWords handles GET /v1/words/slowest?limit=N requests.
func (h *RankingsHandler) HandleSlowestWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := h.limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.SlowestWords(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if entries == nil {
		entries = []types.WordEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
