package missions

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

// CrewRoutes adds the nested /api/crews/{id}/missions endpoints to the crew router.
func CrewRoutes(h *Handler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/{id}/missions", h.ListByCrew)
		r.With(middleware.RequireUser).Post("/{id}/missions", h.Create)
	}
}

// SetupRoutes is mounted at /api/missions.
func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/{id}", h.Get)
	r.With(middleware.RequireUser).Post("/{id}/complete", h.Complete)
	return r
}
