package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/actapp/backend/internal/auth"
)

// RegisterRoutes registers the asset routes under the handler's mount prefix.
// Every route requires a valid token, quote lookups included.
func (h *Handler) RegisterRoutes(r chi.Router, guard *auth.Guard) {
	r.Route(h.mount, func(r chi.Router) {
		r.Use(guard.RequireUser)
		r.Get("/available", h.HandleAvailable)
		r.Get("/price/{symbol}", h.HandlePrice)
		r.Get("/portfolio", h.HandlePortfolio)
		r.Post("/portfolio/add", h.HandleAdd)
	})
}
