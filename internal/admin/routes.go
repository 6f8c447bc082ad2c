package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/middleware"
)

// SetupRoutes is mounted at /admin in the admin deployment.
func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/session", h.Session)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminTokenMiddleware(h.Tokens))

		r.Get("/overview", h.Overview)

		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Patch("/users/{id}", h.UpdateUser)

		r.Get("/crews", h.ListCrews)
		r.Get("/crews/{id}", h.GetCrew)
		r.Patch("/crews/{id}", h.UpdateCrew)

		r.Get("/missions", h.ListMissions)
		r.Get("/missions/{id}", h.GetMission)

		r.Get("/records", h.ListRecords)
		r.Get("/records/{id}", h.GetRecord)
		r.Delete("/records/{id}", h.DeleteRecord)
	})

	return r
}

// DashboardRoutes is mounted at /admin-dashboard. Pages redirect to the login
// page instead of answering 401.
func DashboardRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/login", h.LoginPage)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminPageMiddleware(h.Tokens))
		r.Get("/", h.Overview)
	})

	return r
}

// LegacyRoutes is the main deployment's /admin tree, gated on the profile's
// crew_role.
func LegacyRoutes(h *Handler, roles middleware.RoleFetcher) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.LegacyAdminMiddleware(roles))
	r.Get("/", h.Overview)
	return r
}
