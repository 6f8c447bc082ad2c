package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const SessionCookieName = "session_id"

type SessionFetcher interface {
	FindSessionByID(ctx context.Context, id string) (utils.SessionData, error)
	RefreshSession(ctx context.Context, id string, expiresAt time.Time) error
}

type SessionOptions struct {
	// TTL is the full session lifetime. Sessions with less than half of it
	// left are extended on use.
	TTL    time.Duration
	Secure bool
	Now    func() time.Time
}

// NewSessionCookie builds the identity cookie used by login and refresh.
func NewSessionCookie(value string, expiresAt time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie expires the identity cookie in the browser.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware resolves the caller's identity. It never rejects a request
// on its own: a missing or bad session leaves the caller anonymous and the
// reason in the context for RequireUser.
func SessionMiddleware(fetcher SessionFetcher, opts SessionOptions) func(http.Handler) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session, err := fetcher.FindSessionByID(ctx, cookie.Value)
			if err != nil {
				ctx = context.WithValue(ctx, utils.ContextSessionErrKey, "Couldn't find session")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			current := now()
			if session.ExpiresAt.Before(current) {
				ctx = context.WithValue(ctx, utils.ContextSessionErrKey, "Session expired")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx = context.WithValue(ctx, utils.ContextUserIDKey, session.UserID)
			r = r.WithContext(ctx)

			if opts.TTL <= 0 || session.ExpiresAt.Sub(current) >= opts.TTL/2 {
				next.ServeHTTP(w, r)
				return
			}

			rw := &refreshWriter{ResponseWriter: w}
			rw.refresh = func() {
				if setsSessionCookie(rw.Header()) {
					return
				}
				expiresAt := current.Add(opts.TTL)
				if err := fetcher.RefreshSession(r.Context(), cookie.Value, expiresAt); err != nil {
					logrus.WithError(err).WithField("user_id", session.UserID).Warn("session refresh failed")
					return
				}
				http.SetCookie(rw.ResponseWriter, NewSessionCookie(cookie.Value, expiresAt, opts.Secure))
			}
			next.ServeHTTP(rw, r)
			rw.flushRefresh()
		})
	}
}

// setsSessionCookie reports whether h already carries a session_id Set-Cookie.
func setsSessionCookie(h http.Header) bool {
	for _, v := range h.Values("Set-Cookie") {
		if strings.HasPrefix(v, SessionCookieName+"=") {
			return true
		}
	}
	return false
}

// refreshWriter slides the session just before the headers go out, so a
// handler that replaces or clears the session owns the only session cookie
// on the response.
type refreshWriter struct {
	http.ResponseWriter
	refresh func()
	done    bool
}

func (w *refreshWriter) flushRefresh() {
	if w.done {
		return
	}
	w.done = true
	w.refresh()
}

func (w *refreshWriter) WriteHeader(code int) {
	w.flushRefresh()
	w.ResponseWriter.WriteHeader(code)
}

func (w *refreshWriter) Write(b []byte) (int, error) {
	w.flushRefresh()
	return w.ResponseWriter.Write(b)
}

func (w *refreshWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequireUser rejects anonymous callers with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			reason, found := utils.GetSessionErrorFromContext(r.Context())
			if !found {
				reason = "Couldn't find cookie"
			}
			httputil.WriteError(w, r, httputil.Unauthorized(reason))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware echoes allowed origins with credentials enabled.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
