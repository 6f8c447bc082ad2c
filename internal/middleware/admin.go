package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/runcrew/runcrew-backend/internal/admintoken"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/utils"
)

const AdminLoginPage = "/admin-dashboard/login"

// TokenVerifier is satisfied by *admintoken.Manager.
type TokenVerifier interface {
	FromRequest(r *http.Request) (*admintoken.Claims, error)
}

// AdminTokenError maps a verification failure onto the error taxonomy:
// bad or expired tokens are 401, a valid token without the admin claim is 403.
func AdminTokenError(err error) *httputil.Error {
	switch {
	case errors.Is(err, admintoken.ErrNotAdmin):
		return httputil.Forbidden("관리자 권한이 없습니다")
	case errors.Is(err, admintoken.ErrNoToken):
		return httputil.Unauthorized("인증이 필요합니다")
	default:
		return httputil.Unauthorized("인증이 만료되었거나 유효하지 않습니다")
	}
}

// AdminTokenMiddleware protects the admin JSON API.
func AdminTokenMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.FromRequest(r)
			if err != nil {
				httputil.WriteError(w, r, AdminTokenError(err))
				return
			}
			ctx := context.WithValue(r.Context(), utils.ContextAdminUsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminPageMiddleware protects dashboard pages. Any verification failure
// redirects to the login page.
func AdminPageMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.FromRequest(r)
			if err != nil {
				http.Redirect(w, r, AdminLoginPage, http.StatusFound)
				return
			}
			ctx := context.WithValue(r.Context(), utils.ContextAdminUsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
