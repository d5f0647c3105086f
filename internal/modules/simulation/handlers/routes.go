package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/simulate", h.HandleSimulate)
	r.Get("/simulate/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		h.HandleExport(w, r, id)
	})
	r.Post("/rolling", h.HandleRolling)
}
