package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/griotlabs/griot/internal/store"
)

// handleWords returns the learner's vocabulary notebook, most recently used
// first, optionally filtered by language.
//
//	GET /api/v1/vocabulary?language=yo
func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.store.Vocabulary(r.Context(), userID(r.Context()))
	if err != nil {
		slog.Error("load vocabulary", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load vocabulary")
		return
	}

	if lang := r.URL.Query().Get("language"); lang != "" {
		filtered := make([]store.VocabularyWord, 0, len(words))
		for _, word := range words {
			if word.Language == lang {
				filtered = append(filtered, word)
			}
		}
		words = filtered
	}
	respondJSON(w, http.StatusOK, map[string]any{"words": words})
}

// handleSaveWord adds a word to the notebook by hand, outside of turn
// detection. Saving an existing word counts as another use.
//
//	POST /api/v1/vocabulary  {"language": ..., "term": ..., "heard": ...}
func (s *Server) handleSaveWord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
		Term     string `json:"term"`
		Heard    string `json:"heard"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Language = strings.TrimSpace(req.Language)
	req.Term = strings.TrimSpace(req.Term)
	if req.Language == "" || req.Term == "" {
		respondError(w, http.StatusBadRequest, "language and term are required")
		return
	}
	if req.Heard == "" {
		req.Heard = req.Term
	}

	if err := s.store.RecordVocabulary(r.Context(), userID(r.Context()), req.Language, req.Term, req.Heard); err != nil {
		slog.Error("save vocabulary", "term", req.Term, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to save word")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"language": req.Language, "term": req.Term})
}

// handleDeleteWord removes a notebook entry.
//
//	DELETE /api/v1/vocabulary?language=yo&term=...
func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("language")
	term := r.URL.Query().Get("term")
	if lang == "" || term == "" {
		respondError(w, http.StatusBadRequest, "language and term are required")
		return
	}

	err := s.store.RemoveVocabulary(r.Context(), userID(r.Context()), lang, term)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "word not found")
			return
		}
		slog.Error("delete vocabulary", "term", term, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to delete word")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
