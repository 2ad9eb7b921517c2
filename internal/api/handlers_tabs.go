package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/robby/internal/extract"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 * 1024

func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tabs": s.manager.Tabs()})
}

type openRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	tab, err := s.manager.Open(req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tab)
}

// updateRequest changes any subset of a tab's view state. Index moves the tab
// within the tab bar.
type updateRequest struct {
	Page         *int     `json:"page"`
	ScrollOffset *float64 `json:"scroll_offset"`
	Zoom         *float64 `json:"zoom"`
	Index        *int     `json:"index"`
}

func (s *Server) handleUpdateTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tabID")
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := s.manager.Tab(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Zoom != nil {
		if _, err := s.manager.SetZoom(id, *req.Zoom); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Page != nil {
		if _, err := s.manager.SetPage(id, *req.Page); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.ScrollOffset != nil {
		if _, err := s.manager.SetScroll(id, *req.ScrollOffset); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Index != nil {
		if err := s.manager.MoveTab(id, *req.Index); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	tab, err := s.manager.Tab(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Close(chi.URLParam(r, "tabID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReloadTab(w http.ResponseWriter, r *http.Request) {
	tab, err := s.manager.Reload(chi.URLParam(r, "tabID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}

// handlePageText returns one page's effective text. A page with no
// recoverable text is not an error: it comes back empty with the reason.
func (s *Server) handlePageText(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		jsonError(w, "page must be an integer", http.StatusBadRequest)
		return
	}

	text, src, err := s.manager.PageText(chi.URLParam(r, "tabID"), page)
	resp := map[string]any{
		"page":   page,
		"text":   text,
		"source": src.String(),
	}
	var f *extract.Failure
	switch {
	case errors.As(err, &f):
		resp["failure"] = f.Reason
	case err != nil:
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
