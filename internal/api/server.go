// Package api is the loopback HTTP bridge the UI shell drives the session
// manager through.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dgallion1/robby/internal/backend"
	"github.com/dgallion1/robby/internal/search"
	"github.com/dgallion1/robby/internal/session"
	"github.com/dgallion1/robby/internal/tabs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for the reader.
type Server struct {
	router  chi.Router
	manager *session.Manager
	log     *slog.Logger
	token   string
}

// NewServer creates and configures the HTTP server. An empty token disables
// authentication.
func NewServer(mgr *session.Manager, log *slog.Logger, token string) *Server {
	s := &Server{
		manager: mgr,
		log:     log,
		token:   token,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.token != "" {
			r.Use(AuthMiddleware(s.token, s.log))
		}

		r.Route("/api/tabs", func(r chi.Router) {
			r.Get("/", s.handleListTabs)
			r.Post("/", s.handleOpenTab)

			r.Route("/{tabID}", func(r chi.Router) {
				r.Patch("/", s.handleUpdateTab)
				r.Delete("/", s.handleCloseTab)
				r.Post("/reload", s.handleReloadTab)
				r.Post("/search", s.handleSearch)
				r.Post("/search/next", s.handleNextMatch)
				r.Post("/search/prev", s.handlePrevMatch)
				r.Get("/matches", s.handleMatches)
				r.Get("/pages/{page}/text", s.handlePageText)
			})
		})

		r.Get("/api/recent", s.handleRecent)
		r.Post("/api/session/save", s.handleSave)
		r.Get("/api/stats/extract", s.handleExtractStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tabs":   len(s.manager.Tabs()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps manager errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var oe *backend.OpenError
	var pe *session.PersistError
	switch {
	case errors.Is(err, search.ErrNoMatches):
		jsonError(w, "no matches", http.StatusNotFound)
	case errors.Is(err, tabs.ErrTabNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &oe):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, tabs.ErrInvalidZoom), errors.Is(err, backend.ErrPageOutOfRange):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		jsonError(w, "search superseded", http.StatusConflict)
	case errors.Is(err, session.ErrShutdown):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &pe):
		s.log.Error("session save failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.log.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
