package notifications

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)

	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Patch("/{id}/read", h.MarkRead)
	r.Post("/read-all", h.ReadAll)

	return r
}
