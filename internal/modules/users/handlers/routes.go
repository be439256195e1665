package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/actapp/backend/internal/auth"
)

// RegisterRoutes registers all user management routes
func (h *Handler) RegisterRoutes(r chi.Router, guard *auth.Guard) {
	r.Route("/users", func(r chi.Router) {
		r.Use(guard.RequireUser)
		r.Get("/{id}", h.HandleGetUser)
		r.Put("/{id}", h.HandleUpdateUser)
		r.With(guard.RequireAdmin).Delete("/{id}", h.HandleDeleteUser)
		r.With(guard.RequireAdmin).Get("/", h.HandleListUsers)
	})
}
