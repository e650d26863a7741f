// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// LayoutDependencies defines the interface for layout switching.
type LayoutDependencies interface {
	SetLayout(layoutID string) error
}

// LayoutHandler handles the layout endpoint.
type LayoutHandler struct {
	deps LayoutDependencies
}

// NewLayoutHandler creates a new layout handler.
func NewLayoutHandler(deps LayoutDependencies) *LayoutHandler {
	return &LayoutHandler{deps: deps}
}

// layoutRequest mirrors the PUT /v1/layout body.
type layoutRequest struct {
	Layout string `json:"layout"`
}

// HandleSetLayout handles PUT /v1/layout requests.
func (h *LayoutHandler) HandleSetLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Layout) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing layout"))
		return
	}
	if err := h.deps.SetLayout(req.Layout); err != nil {
		if isClientError(err) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
