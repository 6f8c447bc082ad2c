package middleware

import (
	"net/http"
	"strings"

	"github.com/runcrew/runcrew-backend/internal/config"
	"github.com/runcrew/runcrew-backend/internal/httputil"
)

// AllowedInMode reports whether path belongs to the half of the application
// served by mode.
func AllowedInMode(mode config.Mode, path string) bool {
	dashboard := hasSegmentPrefix(path, "/admin-dashboard")
	if mode == config.ModeAdmin {
		return path == "/" || path == "/healthz" || dashboard || hasSegmentPrefix(path, "/admin")
	}
	return !dashboard
}

// hasSegmentPrefix matches prefix itself or prefix followed by "/".
func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// ModeGuard rejects cross-mode paths with 404 before any auth gate runs.
func ModeGuard(mode config.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AllowedInMode(mode, r.URL.Path) {
				httputil.WriteError(w, r, httputil.NotFound("페이지를 찾을 수 없습니다"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
