// Package server exposes the pricing service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cardintel/cardintel/internal/monitoring"
	"github.com/cardintel/cardintel/internal/pricing"
	"github.com/cardintel/cardintel/internal/search"
	"github.com/cardintel/cardintel/internal/store"
)

// PriceResolver abstracts the resolver operations the API needs.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, cardID, cardName string) *pricing.PricedEntry
	Invalidate()
}

// Server holds the HTTP API dependencies.
type Server struct {
	resolver  PriceResolver
	store     store.Store
	index     *search.Index
	collector *monitoring.Collector

	historyLimit int
}

// New creates a Server. The store may be nil when running without
// persistence; history routes then return 404.
func New(resolver PriceResolver, st store.Store, index *search.Index, collector *monitoring.Collector) *Server {
	return &Server{resolver: resolver, store: st, index: index, collector: collector}
}

// WithHistoryLimit sets how many history rows a request without an explicit
// limit returns. Non-positive values defer to the store's default.
func (s *Server) WithHistoryLimit(n int) *Server {
	if n > 0 {
		s.historyLimit = n
	}
	return s
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/prices/{cardID}", s.handlePrice)
		r.Get("/prices/{cardID}/history", s.handleHistory)
		r.Get("/autocomplete", s.handleAutocomplete)
		r.Get("/stats", s.handleStats)
		r.Post("/admin/refresh-prices", s.handleRefresh)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePrice resolves one card's price. The optional name query overrides
// the display name sent upstream; it defaults to the card id.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	name := r.URL.Query().Get("name")
	if name == "" {
		name = cardID
	}

	entry := s.resolver.ResolvePrice(r.Context(), cardID, name)
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "price unavailable",
			"card":  cardID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card_id": cardID,
		"entry":   entry,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not available"})
		return
	}

	cardID := chi.URLParam(r, "cardID")
	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	history, err := s.store.ListPriceHistory(r.Context(), cardID, limit)
	if err != nil {
		zap.L().Error("list price history failed", zap.String("card", cardID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card_id": cardID,
		"history": history,
		"count":   len(history),
	})
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	cards := s.index.Search(q, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": cards,
		"count":   len(cards),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err != nil {
		zap.L().Error("collect stats failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRefresh drops the whole price cache so subsequent lookups hit the
// upstream again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.resolver.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "cache cleared",
		"cleared_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}
