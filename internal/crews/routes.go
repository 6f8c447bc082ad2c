package crews

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

// SetupRoutes is mounted at /api/crews. Browsing is public; joining and
// creating need a session. Mission routes under a crew live in the
// missions package.
func SetupRoutes(h *Handler, extra func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/", h.Create)
		r.Post("/{id}/join", h.Join)
		r.Delete("/{id}/members/me", h.Leave)
	})

	if extra != nil {
		extra(r)
	}
	return r
}
