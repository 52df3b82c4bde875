package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hsinghweb/web-history-search-rag/internal/backend"
	"github.com/hsinghweb/web-history-search-rag/internal/config"
	"github.com/hsinghweb/web-history-search-rag/internal/indexer"
	"github.com/hsinghweb/web-history-search-rag/internal/messenger"
)

// Server is the HTTP surface of the service: the control-surface
// endpoints (visit, search, open) and the page-context message endpoints.
type Server struct {
	router     chi.Router
	backend    *backend.Client
	indexer    *indexer.Indexer
	dispatcher *messenger.Dispatcher
	sessions   *SessionStore
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(bc *backend.Client, ix *indexer.Indexer, d *messenger.Dispatcher, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		backend:    bc,
		indexer:    ix,
		dispatcher: d,
		sessions:   NewSessionStore(),
		log:        log,
		cfg:        cfg,
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

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey))
		}

		r.Post("/api/visit", s.handleVisit)
		r.Post("/api/search", s.handleSearch)
		r.Get("/api/stats", s.handleStats)
		r.Post("/api/clear", s.handleClear)

		r.Post("/api/open", s.handleOpen)
		r.Post("/api/session/{sessionID}/loaded", s.handleLoaded)
		r.Post("/api/session/{sessionID}/message", s.handleMessage)
		r.Get("/api/session/{sessionID}/content", s.handleContent)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
