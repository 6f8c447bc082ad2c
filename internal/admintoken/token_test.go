package admintoken_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/runcrew/runcrew-backend/internal/admintoken"
)

const testSecret = "fixture-signing-secret"

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newManager(c *clock) *admintoken.Manager {
	return admintoken.NewManager(admintoken.Config{
		Username: "crewadmin",
		Password: "s3cret!",
		Secret:   testSecret,
		Now:      c.Now,
	})
}

func signRaw(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestIssueThenVerify(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(c)

	for _, username := range []string{"crewadmin", "운영자", "a"} {
		token, err := m.Issue(username)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		claims, err := m.Verify(token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if claims.Username != username {
			t.Errorf("expected username %q, got %q", username, claims.Username)
		}
		if !claims.Admin {
			t.Error("expected admin claim")
		}
		if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 24*time.Hour {
			t.Errorf("expected 24h lifetime, got %s", got)
		}
	}
}

func TestVerify_ExpiredIsAuthenticationError(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(c)

	token, err := m.Issue("crewadmin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, age := range []time.Duration{24*time.Hour + time.Second, 25 * time.Hour, 30 * 24 * time.Hour} {
		c.t = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(age)
		_, err := m.Verify(token)
		if !errors.Is(err, admintoken.ErrInvalidToken) {
			t.Errorf("age %s: expected ErrInvalidToken, got %v", age, err)
		}
		if errors.Is(err, admintoken.ErrNotAdmin) {
			t.Errorf("age %s: expired token must never be reported as forbidden", age)
		}
	}
}

func TestVerify_ExpiredNonAdminIsStillAuthenticationError(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(c)

	token := signRaw(t, admintoken.Claims{
		Admin:    false,
		Username: "crewadmin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(c.t.Add(-time.Minute)),
		},
	}, testSecret)

	if _, err := m.Verify(token); !errors.Is(err, admintoken.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_AdminClaimFalseOrAbsentIsForbidden(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(c)
	exp := jwt.NewNumericDate(c.t.Add(time.Hour))

	withFalse := signRaw(t, admintoken.Claims{
		Admin:            false,
		Username:         "crewadmin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
	}, testSecret)
	absent := signRaw(t, jwt.MapClaims{
		"username": "crewadmin",
		"exp":      exp.Unix(),
	}, testSecret)

	for name, token := range map[string]string{"false": withFalse, "absent": absent} {
		if _, err := m.Verify(token); !errors.Is(err, admintoken.ErrNotAdmin) {
			t.Errorf("admin claim %s: expected ErrNotAdmin, got %v", name, err)
		}
	}
}

func TestVerify_RejectsForeignSignatureAndGarbage(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(c)

	forged := signRaw(t, admintoken.Claims{
		Admin:            true,
		Username:         "crewadmin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour))},
	}, "some-other-secret")

	for _, token := range []string{forged, "not-a-jwt", "a.b.c"} {
		if _, err := m.Verify(token); !errors.Is(err, admintoken.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestVerify_RequiresExpiry(t *testing.T) {
	m := newManager(&clock{t: time.Now()})
	token := signRaw(t, jwt.MapClaims{"admin": true, "username": "crewadmin"}, testSecret)

	if _, err := m.Verify(token); !errors.Is(err, admintoken.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for a token without exp, got %v", err)
	}
}

func TestVerify_Empty(t *testing.T) {
	m := newManager(&clock{t: time.Now()})
	if _, err := m.Verify(""); !errors.Is(err, admintoken.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestCheckCredentials(t *testing.T) {
	m := newManager(&clock{t: time.Now()})

	if err := m.CheckCredentials("crewadmin", "s3cret!"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	for _, tc := range [][2]string{
		{"crewadmin", "wrong"},
		{"someone", "s3cret!"},
		{"crewadmin", "s3cret! "},
		{"", ""},
	} {
		if err := m.CheckCredentials(tc[0], tc[1]); !errors.Is(err, admintoken.ErrInvalidCredentials) {
			t.Errorf("CheckCredentials(%q, %q): expected ErrInvalidCredentials, got %v", tc[0], tc[1], err)
		}
	}
}

func TestCheckCredentials_UnconfiguredNeverMatches(t *testing.T) {
	m := admintoken.NewManager(admintoken.Config{Secret: testSecret})
	if err := m.CheckCredentials("", ""); !errors.Is(err, admintoken.ErrInvalidCredentials) {
		t.Errorf("expected empty configuration to reject empty credentials, got %v", err)
	}
}

func TestCookieAttributes(t *testing.T) {
	m := admintoken.NewManager(admintoken.Config{Secret: testSecret, Secure: true})

	rec := httptest.NewRecorder()
	http.SetCookie(rec, m.Cookie("tok"))
	header := rec.Header().Get("Set-Cookie")

	for _, want := range []string{"admin_token=tok", "Path=/", "Max-Age=86400", "HttpOnly", "Secure", "SameSite=Lax"} {
		if !strings.Contains(header, want) {
			t.Errorf("expected %q in Set-Cookie, got %q", want, header)
		}
	}
}

func TestClearCookie(t *testing.T) {
	m := admintoken.NewManager(admintoken.Config{Secret: testSecret})

	rec := httptest.NewRecorder()
	http.SetCookie(rec, m.ClearCookie())
	header := rec.Header().Get("Set-Cookie")

	if !strings.HasPrefix(header, "admin_token=;") {
		t.Errorf("expected empty admin_token value, got %q", header)
	}
	if !strings.Contains(header, "Max-Age=0") {
		t.Errorf("expected Max-Age=0, got %q", header)
	}
	if strings.Contains(header, "Secure") {
		t.Errorf("expected no Secure flag outside production, got %q", header)
	}
}

func TestFromRequest(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c)
	token, _ := m.Issue("crewadmin")

	req := httptest.NewRequest(http.MethodGet, "/admin/session", nil)
	if _, err := m.FromRequest(req); !errors.Is(err, admintoken.ErrNoToken) {
		t.Errorf("expected ErrNoToken without cookie, got %v", err)
	}

	req.AddCookie(&http.Cookie{Name: admintoken.CookieName, Value: token})
	claims, err := m.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if claims.Username != "crewadmin" {
		t.Errorf("expected crewadmin, got %q", claims.Username)
	}
}
