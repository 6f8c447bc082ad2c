package comments

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", h.List)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/like", h.Like)
		r.Delete("/{id}/like", h.Unlike)
	})

	return r
}
