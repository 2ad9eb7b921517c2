package api

import (
	"net/http"
)

func (s *Server) handleExtractStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": s.manager.Stats(),
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	recent := s.manager.Recent()
	if recent == nil {
		recent = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recent": recent})
}

// handleSave writes the session file now instead of waiting for autosave.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.SaveNow(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
