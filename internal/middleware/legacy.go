package middleware

import (
	"context"
	"net/http"

	"github.com/runcrew/runcrew-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// RoleFetcher looks up the crew_role stored on a profile.
type RoleFetcher interface {
	CrewRole(ctx context.Context, userID string) (string, error)
}

// LegacyAdminMiddleware gates the old /admin tree on the profile's crew_role.
// Anything but an admin profile is sent back to the home page.
//
// Deprecated: the admin deployment's token gate replaces this.
func LegacyAdminMiddleware(roles RoleFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			role, err := roles.CrewRole(r.Context(), userID)
			if err != nil {
				logrus.WithError(err).WithField("user_id", userID).Debug("legacy admin role lookup failed")
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			if role != "admin" {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
