package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sitesmith/internal/store"
)

// BearerAuthMiddleware requires "Authorization: Bearer <token>" when token
// is set. An empty token leaves the routes open.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type listResponse struct {
	Generations []store.GenerationSummary `json:"generations"`
	Count       int                       `json:"count"`
}

// listGenerations handles GET /api/generations
func (s *Server) listGenerations(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	gens, err := s.deps.History.ListGenerations(r.Context(), limit)
	if err != nil {
		s.logger.Error("list generations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if gens == nil {
		gens = []store.GenerationSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse{Generations: gens, Count: len(gens)})
}

// getGeneration handles GET /api/generations/{id}
func (s *Server) getGeneration(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	gen, err := s.deps.History.GetGeneration(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "generation not found")
		return
	case err != nil:
		s.logger.Error("get generation failed", "id", id.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, gen)
}
