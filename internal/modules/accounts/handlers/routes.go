package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/actapp/backend/internal/auth"
)

// RegisterRoutes registers all auth routes
func (h *Handler) RegisterRoutes(r chi.Router, guard *auth.Guard) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.With(guard.RequireUser).Get("/profile", h.HandleProfile)
	})
}
