// Package admintoken mints and verifies the signed back-office token. It is
// independent of the identity provider: credentials come from process
// configuration and nothing is stored server side.
package admintoken

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "admin_token"
	TokenTTL   = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	ErrNoToken            = errors.New("admin token missing")
	ErrInvalidToken       = errors.New("admin token invalid or expired")
	ErrNotAdmin           = errors.New("admin claim missing")
	ErrNotConfigured      = errors.New("admin token signing is not configured")
)

// Claims is the admin token payload.
type Claims struct {
	Admin    bool   `json:"admin"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config is the fixture-friendly input to NewManager.
type Config struct {
	Username string
	Password string
	Secret   string
	Secure   bool
	Now      func() time.Time
}

type Manager struct {
	username []byte
	password []byte
	secret   []byte
	secure   bool
	now      func() time.Time
}

func NewManager(cfg Config) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		username: []byte(cfg.Username),
		password: []byte(cfg.Password),
		secret:   []byte(cfg.Secret),
		secure:   cfg.Secure,
		now:      now,
	}
}

// CheckCredentials compares both values in constant time and reports a single
// error regardless of which one was wrong.
func (m *Manager) CheckCredentials(username, password string) error {
	if len(m.username) == 0 || len(m.password) == 0 {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), m.username)
	passOK := subtle.ConstantTimeCompare([]byte(password), m.password)
	if userOK&passOK != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// Issue signs a token for username that expires TokenTTL from now.
func (m *Manager) Issue(username string) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := m.now()
	claims := Claims{
		Admin:    true,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks the signature and expiry before looking at the admin claim, so
// a stale token is always ErrInvalidToken and never ErrNotAdmin.
func (m *Manager) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if len(m.secret) == 0 {
		return nil, ErrNotConfigured
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !claims.Admin {
		return nil, ErrNotAdmin
	}
	return &claims, nil
}

// FromRequest verifies the token carried in the admin cookie.
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoToken
	}
	return m.Verify(cookie.Value)
}

func (m *Manager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie overwrites the admin cookie. net/http encodes MaxAge -1 as
// "Max-Age=0".
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
