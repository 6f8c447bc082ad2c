package profiles

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

// MeRoutes is mounted at /api/me.
func MeRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)
	r.Get("/", h.GetMe)
	r.Patch("/", h.UpdateMe)
	return r
}

// SetupRoutes is mounted at /api/profiles.
func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)
	r.Get("/{id}", h.GetProfile)
	return r
}
