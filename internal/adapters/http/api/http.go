// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/typepulse/typepulse/internal/adapters/repository"
	"github.com/typepulse/typepulse/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ranking reads over the aggregated statistics.
	SlowestKeys(ctx context.Context, n int) ([]types.KeyEntry, error)
	SlowestDigraphs(ctx context.Context, n int) ([]types.DigraphEntry, error)
	SlowestWords(ctx context.Context, n int) ([]types.WordEntry, error)

	// Totals summarizes the persisted burst history.
	Totals(ctx context.Context) (repository.Totals, error)

	// IgnoreWord suppresses a word from statistics and drops its history.
	IgnoreWord(ctx context.Context, word string) error

	// SetLayout switches the active keyboard layout for future events.
	SetLayout(layoutID string) error

	// GetStats exposes runtime counters for the operational surface.
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the stats API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	wordsHandler    *WordsHandler
	layoutHandler   *LayoutHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// ?limit= parameter accepted by the ranking endpoints.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps, maxLimit),
		wordsHandler:    NewWordsHandler(deps),
		layoutHandler:   NewLayoutHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/v1/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/keys/slowest", MetricsMiddleware(s.rankingsHandler.HandleSlowestKeys, "keys_slowest"))
	mux.HandleFunc("/v1/digraphs/slowest", MetricsMiddleware(s.rankingsHandler.HandleSlowestDigraphs, "digraphs_slowest"))
	mux.HandleFunc("/v1/words/slowest", MetricsMiddleware(s.rankingsHandler.HandleSlowestWords, "words_slowest"))
	mux.HandleFunc("/v1/words/ignored", MetricsMiddleware(s.wordsHandler.HandleIgnoreWord, "words_ignored"))
	mux.HandleFunc("/v1/layout", MetricsMiddleware(s.layoutHandler.HandleSetLayout, "layout"))
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isClientError translates domain validation failures to 400 responses.
func isClientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBadRequest) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unsupported")
}
