package api

import (
	"net/http"

	"eduai/internal/chat"

	"github.com/go-chi/chi/v5"
)

type chatMessageRequest struct {
	Question string `json:"question" validate:"required,max=8000"`
	Context  string `json:"context" validate:"omitempty,max=64"`
}

func (s *Server) handleChatContexts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"contexts": chat.Contexts()})
}

func (s *Server) handleCreateChatSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.chat.NewSession(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := s.chat.History(r.Context(), id)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "turns": turns})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	reply, err := s.chat.Ask(r.Context(), chi.URLParam(r, "id"), req.Question, req.Context)
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
