package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))

	// Unauthenticated.
	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())
	// Websocket clients authenticate in-band.
	r.Get("/ws/subscribe", s.subscribe)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.ws.APIKeys))

		r.Post("/ops", s.postOp)
		r.Get("/memories", s.listMemories)
		r.Get("/memories/{id}", s.getMemory)
		r.Get("/commitments", s.listCommitments)
		r.Get("/commitments/{id}", s.getCommitment)
		r.Get("/ledger", s.listLedger)
		r.Get("/status", s.status)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "E_NOT_FOUND", "message": "Route not found"})
	})
	return r
}
