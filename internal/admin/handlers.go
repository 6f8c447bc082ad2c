// Package admin is the token-gated back office: login, collection views with
// derived counts, details, moderation mutations, and the overview.
package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/runcrew/runcrew-backend/internal/admintoken"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Handler struct {
	DB      *gorm.DB
	Tokens  *admintoken.Manager
	limiter *loginLimiter
}

// NewHandler wires the limiter at loginsPerMinute attempts per client.
func NewHandler(db *gorm.DB, tokens *admintoken.Manager, loginsPerMinute int) *Handler {
	return &Handler{DB: db, Tokens: tokens, limiter: newLoginLimiter(loginsPerMinute)}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges the configured credentials for the admin cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		w.Header().Set("Retry-After", "60")
		httputil.WriteError(w, r, httputil.TooManyRequests("로그인 시도가 너무 많습니다. 잠시 후 다시 시도해주세요"))
		return
	}

	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httputil.WriteError(w, r, httputil.BadRequest("아이디와 비밀번호를 입력해주세요"))
		return
	}

	if err := h.Tokens.CheckCredentials(req.Username, req.Password); err != nil {
		logrus.WithField("remote", clientKey(r)).Warn("admin login rejected")
		httputil.WriteError(w, r, httputil.Unauthorized("아이디 또는 비밀번호가 올바르지 않습니다"))
		return
	}

	token, err := h.Tokens.Issue(req.Username)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.Tokens.Cookie(token))
	logrus.WithField("username", req.Username).Info("admin logged in")
	httputil.Success(w, "로그인 성공")
}

// Logout clears the cookie. Tokens are stateless, so nothing else is revoked.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.Tokens.ClearCookie())
	httputil.Success(w, "")
}

// Session reports whether the caller's admin cookie is currently valid.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Tokens.FromRequest(r)
	if err != nil {
		appErr := middleware.AdminTokenError(err)
		if !errors.Is(err, admintoken.ErrNotAdmin) && !errors.Is(err, admintoken.ErrNoToken) && !errors.Is(err, admintoken.ErrInvalidToken) {
			logrus.WithError(err).Error("admin session check failed")
		}
		httputil.WriteJSON(w, appErr.Status, map[string]any{
			"authenticated": false,
			"error":         appErr.Message,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      claims.Username,
	})
}
