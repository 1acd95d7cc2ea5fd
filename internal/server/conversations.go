package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
)

// maxAudioUpload caps a single turn's audio clip at 10 MiB.
const maxAudioUpload = 10 << 20

// handleCreateConversation opens a conversation on a scenario.
//
//	POST /api/v1/conversations/start  {"scenario_id": ...}
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scn := s.scenarios.ByID(req.ScenarioID)
	if scn == nil {
		respondError(w, http.StatusNotFound, "unknown scenario")
		return
	}

	conv, err := s.store.CreateConversation(r.Context(), userID(r.Context()), scn.ID, scn.Language)
	if err != nil {
		slog.Error("create conversation", "scenario_id", scn.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}
	respondJSON(w, http.StatusCreated, conv)
}

// handleHistory lists the requester's conversations, newest first.
//
//	GET /api/v1/conversations/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.Conversations(r.Context(), userID(r.Context()))
	if err != nil {
		slog.Error("list conversations", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load conversations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// handleSubmitTurn runs one spoken turn through the pipeline. Turns carry
// either an audio file or a pre-transcribed "transcript" field.
//
//	POST /api/v1/conversations/{id}/turns  (multipart, fields "audio"/"transcript")
func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.ownedConversation(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)

	in := TurnInput{Transcript: strings.TrimSpace(r.FormValue("transcript"))}
	file, header, err := r.FormFile("audio")
	if err == nil {
		defer file.Close()
		in.Audio, err = io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read audio")
			return
		}
		in.MIMEType = header.Header.Get("Content-Type")
	}
	if len(in.Audio) == 0 && in.Transcript == "" {
		respondError(w, http.StatusBadRequest, "an audio file or a transcript field is required")
		return
	}

	s.metrics.ActiveConversations.Add(r.Context(), 1)
	defer s.metrics.ActiveConversations.Add(r.Context(), -1)

	result, err := s.pipeline.ProcessTurn(r.Context(), conv, in)
	if err != nil {
		if errors.Is(err, ErrTranscriptRequired) {
			respondError(w, http.StatusBadRequest, "transcription is not configured; send a transcript field")
			return
		}
		slog.Error("process turn", "conversation_id", conv.ID, "err", err)
		respondError(w, http.StatusBadGateway, "turn processing failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleListTurns returns a conversation's full turn history.
//
//	GET /api/v1/conversations/{id}/turns
func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.ownedConversation(w, r)
	if !ok {
		return
	}

	stored, err := s.store.Turns(r.Context(), conv.ID)
	if err != nil {
		slog.Error("list turns", "conversation_id", conv.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load turns")
		return
	}
	turns := make([]tutor.TurnResult, len(stored))
	for i, t := range stored {
		turns[i] = t.TurnResult
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// ownedConversation loads the conversation in the route and verifies the
// requester owns it. Ownership failures read as not-found so conversation
// IDs cannot be probed.
func (s *Server) ownedConversation(w http.ResponseWriter, r *http.Request) (*store.Conversation, bool) {
	id := mux.Vars(r)["id"]
	conv, err := s.store.Conversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation not found")
		} else {
			slog.Error("load conversation", "conversation_id", id, "err", err)
			respondError(w, http.StatusInternalServerError, "failed to load conversation")
		}
		return nil, false
	}
	if conv.UserID != userID(r.Context()) {
		respondError(w, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	return conv, true
}
