package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sitesmith/internal/analysis"
	"github.com/MikeSquared-Agency/sitesmith/internal/processor"
	"github.com/MikeSquared-Agency/sitesmith/internal/store"
)

// Generator opens generation runs. *processor.Processor implements it.
type Generator interface {
	Start(ctx context.Context, req processor.Request) (*processor.Run, error)
}

// Analyzer describes uploads. *analysis.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, kind analysis.Kind, filename string, data []byte) (*analysis.Analysis, error)
}

// History reads past generations. *store.Store implements it.
type History interface {
	GetGeneration(ctx context.Context, id uuid.UUID) (*store.Generation, error)
	ListGenerations(ctx context.Context, limit int) ([]store.GenerationSummary, error)
}

// Deps are the collaborators behind the routes. History is optional; without
// it the history routes answer 503.
type Deps struct {
	Generator Generator
	Analyzer  Analyzer
	History   History
	APIToken  string
	Logger    *slog.Logger
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

func NewServer(port int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: deps.Logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/sitesmith/status", s.status)

	router.Post("/api/generate", s.generate)
	router.Post("/api/generate-website-from-image", s.generateFromDescription(processor.KindImage))
	router.Post("/api/generate-website-from-pdf", s.generateFromDescription(processor.KindDocument))
	router.Post("/api/analyze-image", s.analyze(analysis.KindImage))
	router.Post("/api/analyze-pdf", s.analyze(analysis.KindDocument))

	router.Route("/api/generations", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(deps.APIToken))
		r.Get("/", s.listGenerations)
		r.Get("/{id}", s.getGeneration)
	})

	return s
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":   "sitesmith",
		"status":  "ready",
		"history": s.deps.History != nil,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Expose-Headers", HeaderGenerationID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
