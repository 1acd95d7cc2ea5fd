package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/griotlabs/griot/internal/tutor"
)

// handleFinishScenario settles a won scenario run and rolls proverb loot.
//
//	POST /api/v1/game/finish_scenario  {"scenario_id": ..., "stars": 1-3}
func (s *Server) handleFinishScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
		Stars      int    `json:"stars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.scenarios.ByID(req.ScenarioID) == nil {
		respondError(w, http.StatusNotFound, "unknown scenario")
		return
	}
	if req.Stars < 1 || req.Stars > 3 {
		respondError(w, http.StatusBadRequest, "stars must be between 1 and 3")
		return
	}

	result, err := s.pipeline.FinishScenario(r.Context(), userID(r.Context()), req.ScenarioID, req.Stars)
	if err != nil {
		slog.Error("finish scenario", "scenario_id", req.ScenarioID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to finish scenario")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleProgress returns the learner's per-scenario best results.
//
//	GET /api/v1/game/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.store.Progress(r.Context(), userID(r.Context()))
	if err != nil {
		slog.Error("load progress", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"progress": progress})
}

// handleDeck returns the learner's collected proverbs in full.
//
//	GET /api/v1/game/deck
func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.OwnedProverbs(r.Context(), userID(r.Context()))
	if err != nil {
		slog.Error("load deck", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load deck")
		return
	}

	deck := make([]tutor.Reward, 0, len(ids))
	for _, id := range ids {
		pv := s.proverbs.ByID(id)
		if pv == nil {
			// Pack changed since the grant; the ID alone is useless to show.
			continue
		}
		deck = append(deck, tutor.Reward{
			ID:          pv.ID,
			Language:    pv.Language,
			Text:        pv.Text,
			Translation: pv.Translation,
			Meaning:     pv.Meaning,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"deck": deck})
}
