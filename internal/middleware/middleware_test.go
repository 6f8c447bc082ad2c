package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/runcrew/runcrew-backend/internal/admintoken"
	"github.com/runcrew/runcrew-backend/internal/config"
	"github.com/runcrew/runcrew-backend/internal/middleware"
	"github.com/runcrew/runcrew-backend/internal/utils"
)

// mockFetcher implements middleware.SessionFetcher without any database dependency.
type mockFetcher struct {
	session    utils.SessionData
	err        error
	refreshErr error
	refreshed  *time.Time
}

func (m *mockFetcher) FindSessionByID(ctx context.Context, id string) (utils.SessionData, error) {
	return m.session, m.err
}

func (m *mockFetcher) RefreshSession(ctx context.Context, id string, expiresAt time.Time) error {
	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.refreshed = &expiresAt
	return nil
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func sessionMW(f *mockFetcher) func(http.Handler) http.Handler {
	return middleware.SessionMiddleware(f, middleware.SessionOptions{
		TTL: 168 * time.Hour,
		Now: func() time.Time { return fixedNow },
	})
}

// callWithCookie wraps inner in the provided middleware, optionally setting
// one cookie on the request, and returns the recorded response.
func callWithCookie(t *testing.T, mw func(http.Handler) http.Handler, inner http.Handler, cookieName, cookieValue string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if cookieName != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookieValue})
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

var ok200 = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func protected(f *mockFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return sessionMW(f)(middleware.RequireUser(next))
	}
}

func TestSessionMiddleware_MissingCookieIsAnonymous(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); ok {
			t.Error("expected no user in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := callWithCookie(t, sessionMW(&mockFetcher{}), inner, "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected anonymous pass-through, got %d", rec.Code)
	}
}

func TestRequireUser_MissingCookie(t *testing.T) {
	rec := callWithCookie(t, protected(&mockFetcher{}), ok200, "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireUser_ExpiredSession(t *testing.T) {
	fetcher := &mockFetcher{
		session: utils.SessionData{
			UserID:    "some-user",
			ExpiresAt: fixedNow.Add(-1 * time.Hour),
		},
	}

	rec := callWithCookie(t, protected(fetcher), ok200, "session_id", "expired-session-id")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Session expired") {
		t.Errorf("expected body to contain %q, got: %q", "Session expired", body)
	}
	if fetcher.refreshed != nil {
		t.Error("expired sessions must not be refreshed")
	}
}

func TestRequireUser_FetcherError(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("session not found")}

	rec := callWithCookie(t, protected(fetcher), ok200, "session_id", "nonexistent-session-id")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Couldn't find session") {
		t.Errorf("expected body to contain %q, got: %q", "Couldn't find session", body)
	}
}

func TestSessionMiddleware_ValidSession(t *testing.T) {
	const wantUserID = "test-user-123"

	fetcher := &mockFetcher{
		session: utils.SessionData{
			UserID:    wantUserID,
			ExpiresAt: fixedNow.Add(150 * time.Hour),
		},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, ok := utils.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "userID not in context", http.StatusInternalServerError)
			return
		}
		if gotUserID != wantUserID {
			http.Error(w, "wrong userID in context: "+gotUserID, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := callWithCookie(t, protected(fetcher), inner, "session_id", "valid-session-id")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	if fetcher.refreshed != nil {
		t.Error("a fresh session should not be refreshed")
	}
	if got := rec.Header().Get("Set-Cookie"); got != "" {
		t.Errorf("expected no cookie for a fresh session, got %q", got)
	}
}

func TestSessionMiddleware_RefreshesAgingSession(t *testing.T) {
	fetcher := &mockFetcher{
		session: utils.SessionData{UserID: "u1", ExpiresAt: fixedNow.Add(10 * time.Hour)},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})

	rec := callWithCookie(t, sessionMW(fetcher), inner, "session_id", "aging")

	if fetcher.refreshed == nil || !fetcher.refreshed.Equal(fixedNow.Add(168*time.Hour)) {
		t.Fatalf("expected expiry slid to now+TTL, got %v", fetcher.refreshed)
	}
	cookies := sessionCookies(rec)
	if len(cookies) != 1 {
		t.Fatalf("expected one session_id cookie, got %v", cookies)
	}
	for _, want := range []string{"session_id=aging", "HttpOnly", "Path=/"} {
		if !strings.Contains(cookies[0], want) {
			t.Errorf("expected %q in Set-Cookie, got %q", want, cookies[0])
		}
	}
}

// sessionCookies returns the session_id Set-Cookie lines on the response.
func sessionCookies(rec *httptest.ResponseRecorder) []string {
	var out []string
	for _, v := range rec.Result().Header.Values("Set-Cookie") {
		if strings.HasPrefix(v, "session_id=") {
			out = append(out, v)
		}
	}
	return out
}

func TestSessionMiddleware_RefreshWhenHandlerWritesNothing(t *testing.T) {
	fetcher := &mockFetcher{
		session: utils.SessionData{UserID: "u1", ExpiresAt: fixedNow.Add(time.Hour)},
	}
	silent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := callWithCookie(t, sessionMW(fetcher), silent, "session_id", "aging")

	if got := sessionCookies(rec); len(got) != 1 {
		t.Fatalf("expected refreshed cookie on an empty 200, got %v", got)
	}
}

// A handler that ends the session must leave only its clearing cookie and
// the session must not be extended first.
func TestSessionMiddleware_LogoutOwnsFinalCookie(t *testing.T) {
	fetcher := &mockFetcher{
		session: utils.SessionData{UserID: "u1", ExpiresAt: fixedNow.Add(time.Hour)},
	}
	logout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, middleware.ClearSessionCookie(false))
		w.WriteHeader(http.StatusOK)
	})

	rec := callWithCookie(t, sessionMW(fetcher), logout, "session_id", "aging")

	cookies := sessionCookies(rec)
	if len(cookies) != 1 {
		t.Fatalf("expected exactly one final session_id cookie, got %d: %v", len(cookies), cookies)
	}
	if !strings.Contains(cookies[0], "Max-Age=0") {
		t.Errorf("expected the clearing cookie, got %q", cookies[0])
	}
	if fetcher.refreshed != nil {
		t.Error("a session being removed must not be refreshed")
	}
}

func TestSessionMiddleware_LoginOwnsFinalCookie(t *testing.T) {
	fetcher := &mockFetcher{
		session: utils.SessionData{UserID: "u1", ExpiresAt: fixedNow.Add(time.Hour)},
	}
	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, middleware.NewSessionCookie("replacement", fixedNow.Add(168*time.Hour), false))
		w.Write([]byte(`{}`))
	})

	rec := callWithCookie(t, sessionMW(fetcher), login, "session_id", "aging")

	cookies := sessionCookies(rec)
	if len(cookies) != 1 || !strings.HasPrefix(cookies[0], "session_id=replacement") {
		t.Fatalf("expected only the new session cookie, got %v", cookies)
	}
	if fetcher.refreshed != nil {
		t.Error("a session being replaced must not be refreshed")
	}
}

func TestSessionMiddleware_FailedRefreshEmitsNoCookie(t *testing.T) {
	fetcher := &mockFetcher{
		session:    utils.SessionData{UserID: "u1", ExpiresAt: fixedNow.Add(time.Hour)},
		refreshErr: errors.New("connection reset"),
	}

	rec := callWithCookie(t, protected(fetcher), ok200, "session_id", "aging")

	if rec.Code != http.StatusOK {
		t.Errorf("expected identity to survive a failed refresh, got %d", rec.Code)
	}
	if got := rec.Header().Get("Set-Cookie"); got != "" {
		t.Errorf("expected no cookie after failed refresh, got %q", got)
	}
}

type mockRoles struct {
	role string
	err  error
}

func (m mockRoles) CrewRole(ctx context.Context, userID string) (string, error) {
	return m.role, m.err
}

func TestLegacyAdminMiddleware(t *testing.T) {
	session := &mockFetcher{session: utils.SessionData{UserID: "u1", ExpiresAt: fixedNow.Add(150 * time.Hour)}}

	cases := []struct {
		name     string
		roles    mockRoles
		cookie   bool
		wantCode int
	}{
		{"anonymous", mockRoles{role: "admin"}, false, http.StatusFound},
		{"member", mockRoles{role: "member"}, true, http.StatusFound},
		{"missing profile", mockRoles{err: errors.New("record not found")}, true, http.StatusFound},
		{"admin", mockRoles{role: "admin"}, true, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := func(next http.Handler) http.Handler {
				return sessionMW(session)(middleware.LegacyAdminMiddleware(tc.roles)(next))
			}
			name := ""
			if tc.cookie {
				name = "session_id"
			}
			rec := callWithCookie(t, mw, ok200, name, "sid")

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if tc.wantCode == http.StatusFound && rec.Header().Get("Location") != "/" {
				t.Errorf("expected redirect to /, got %q", rec.Header().Get("Location"))
			}
		})
	}
}

func adminRequest(t *testing.T, m *admintoken.Manager, token string, mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, _ := utils.GetAdminUsernameFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(name))
	})
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: admintoken.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func TestAdminTokenMiddleware(t *testing.T) {
	now := fixedNow
	m := admintoken.NewManager(admintoken.Config{Secret: "k", Now: func() time.Time { return now }})
	valid, _ := m.Issue("crewadmin")
	mw := middleware.AdminTokenMiddleware(m)

	if rec := adminRequest(t, m, "", mw); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := adminRequest(t, m, "garbage", mw); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: expected 401, got %d", rec.Code)
	}

	rec := adminRequest(t, m, valid, mw)
	if rec.Code != http.StatusOK || rec.Body.String() != "crewadmin" {
		t.Errorf("valid token: expected 200 with username, got %d %q", rec.Code, rec.Body.String())
	}

	now = fixedNow.Add(25 * time.Hour)
	if rec := adminRequest(t, m, valid, mw); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token: expected 401, got %d", rec.Code)
	}
}

func TestAdminTokenError(t *testing.T) {
	cases := map[error]int{
		admintoken.ErrNoToken:      http.StatusUnauthorized,
		admintoken.ErrInvalidToken: http.StatusUnauthorized,
		admintoken.ErrNotAdmin:     http.StatusForbidden,
	}
	for err, want := range cases {
		if got := middleware.AdminTokenError(err).Status; got != want {
			t.Errorf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func TestAdminPageMiddleware_RedirectsToLogin(t *testing.T) {
	m := admintoken.NewManager(admintoken.Config{Secret: "k"})
	rec := adminRequest(t, m, "", middleware.AdminPageMiddleware(m))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin-dashboard/login" {
		t.Errorf("expected redirect to login page, got %q", loc)
	}
}

func TestAllowedInMode(t *testing.T) {
	cases := []struct {
		mode config.Mode
		path string
		want bool
	}{
		{config.ModeMain, "/", true},
		{config.ModeMain, "/api/crews", true},
		{config.ModeMain, "/admin", true},
		{config.ModeMain, "/admin-dashboard", false},
		{config.ModeMain, "/admin-dashboard/users", false},
		{config.ModeAdmin, "/", true},
		{config.ModeAdmin, "/healthz", true},
		{config.ModeAdmin, "/admin/login", true},
		{config.ModeAdmin, "/admin-dashboard", true},
		{config.ModeAdmin, "/admin-dashboard/crews", true},
		{config.ModeAdmin, "/api/crews", false},
		{config.ModeAdmin, "/auth/login", false},
		{config.ModeAdmin, "/administrator", false},
	}
	for _, tc := range cases {
		if got := middleware.AllowedInMode(tc.mode, tc.path); got != tc.want {
			t.Errorf("AllowedInMode(%s, %q) = %v, want %v", tc.mode, tc.path, got, tc.want)
		}
	}
}

func TestModeGuard_RejectsBeforeGate(t *testing.T) {
	gateRan := false
	gate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gateRan = true
		w.WriteHeader(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	rec := httptest.NewRecorder()
	middleware.ModeGuard(config.ModeAdmin)(gate).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if gateRan {
		t.Error("auth gate must not run for a cross-mode path")
	}
}

func TestCORSMiddleware(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/crews", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	mw(ok200).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("expected allowed origin to be echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/crews", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	mw(ok200).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected unknown origin to be ignored")
	}
}

func TestRecover(t *testing.T) {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/crews", nil)
	rec := httptest.NewRecorder()
	middleware.Recover(boom).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "서버 오류가 발생했습니다") {
		t.Errorf("expected generic message, got %q", rec.Body.String())
	}
}
