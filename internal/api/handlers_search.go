package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/robby/internal/search"
	"github.com/dgallion1/robby/internal/tabs"
	"github.com/go-chi/chi/v5"
)

type searchRequest struct {
	Query         string `json:"query"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// matchResponse pairs a match with the tab state it moved to.
type matchResponse struct {
	Match search.Match `json:"match"`
	Tab   tabs.Tab     `json:"tab"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tabID")
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.manager.Search(id, req.Query, search.Options{CaseSensitive: req.CaseSensitive})
	s.writeMatch(w, r, id, m, err)
}

func (s *Server) handleNextMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tabID")
	m, err := s.manager.NextMatch(id)
	s.writeMatch(w, r, id, m, err)
}

func (s *Server) handlePrevMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tabID")
	m, err := s.manager.PrevMatch(id)
	s.writeMatch(w, r, id, m, err)
}

func (s *Server) writeMatch(w http.ResponseWriter, r *http.Request, id string, m search.Match, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tab, err := s.manager.Tab(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Match: m, Tab: tab})
}

// handleMatches lists the matches found so far. drain=true runs the search
// over every remaining page first.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	drain := false
	if v := r.URL.Query().Get("drain"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "drain must be a boolean", http.StatusBadRequest)
			return
		}
		drain = b
	}

	matches, complete, err := s.manager.Matches(chi.URLParam(r, "tabID"), drain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []search.Match{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches":  matches,
		"complete": complete,
	})
}
