package auth

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

// SetupRoutes expects SessionMiddleware to run upstream.
func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/me", h.Me)
		r.Post("/password", h.UpdatePassword)
	})

	return r
}
