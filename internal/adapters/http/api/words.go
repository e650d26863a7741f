// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// WordsDependencies defines the interface for the ignore-word operation.
type WordsDependencies interface {
	IgnoreWord(ctx context.Context, word string) error
}

// WordsHandler handles the ignored-words endpoint.
type WordsHandler struct {
	deps WordsDependencies
}

// NewWordsHandler creates a new words handler.
func NewWordsHandler(deps WordsDependencies) *WordsHandler {
	return &WordsHandler{deps: deps}
}

// ignoreWordRequest mirrors the POST /v1/words/ignored body.
type ignoreWordRequest struct {
	Word string `json:"word"`
}

func (i ignoreWordRequest) validate() error {
	if strings.TrimSpace(i.Word) == "" {
		return errors.New("missing word")
	}
	return nil
}

// HandleIgnoreWord handles POST /v1/words/ignored requests. The word is
// hashed before it is stored; the plaintext never reaches the database.
func (h *WordsHandler) HandleIgnoreWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ignoreWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.IgnoreWord(r.Context(), req.Word); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "ignored"})
}
