package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/middleware"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPasswordLength = 8

var errBadCredentials = httputil.Unauthorized("아이디 또는 비밀번호가 올바르지 않습니다")

type Handler struct {
	DB         *gorm.DB
	SessionTTL time.Duration
	Secure     bool
	Now        func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

func (req *registerRequest) validate() error {
	req.Username = strings.TrimSpace(req.Username)
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Password == "" {
		return httputil.BadRequest("아이디와 비밀번호를 입력해주세요")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return httputil.BadRequest("비밀번호는 8자 이상이어야 합니다")
	}
	if req.Nickname == "" {
		req.Nickname = req.Username
	}
	if utf8.RuneCountInString(req.Nickname) > 30 {
		return httputil.BadRequest("닉네임은 30자 이하여야 합니다")
	}
	return nil
}

// Register creates the identity and its profile in one transaction.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	id := uuid.New()
	user := User{
		UserID:         id.String(),
		Username:       req.Username,
		HashedPassword: string(hashed),
	}
	profile := models.Profile{
		ID:       id,
		Nickname: req.Nickname,
		Email:    req.Email,
		CrewRole: models.RoleMember,
	}

	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return httputil.FromDB(err, "", "이미 사용 중인 아이디입니다")
		}
		if err := tx.Create(&profile).Error; err != nil {
			return httputil.FromDB(err, "", "이미 사용 중인 닉네임입니다")
		}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	logrus.WithField("user_id", user.UserID).Info("user registered")
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id":  user.UserID,
		"username": user.Username,
		"nickname": profile.Nickname,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the password and replaces the caller's session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httputil.WriteError(w, r, httputil.BadRequest("아이디와 비밀번호를 입력해주세요"))
		return
	}

	ctx := r.Context()
	var user User
	if err := h.DB.WithContext(ctx).First(&user, "username = ?", strings.TrimSpace(req.Username)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httputil.WriteError(w, r, errBadCredentials)
			return
		}
		httputil.WriteError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		httputil.WriteError(w, r, errBadCredentials)
		return
	}

	session := Session{
		SessionID: uuid.NewString(),
		UserID:    user.UserID,
		ExpiresAt: h.now().Add(h.SessionTTL),
	}
	err := h.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_id", "expires_at"}),
	}).Create(&session).Error
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, middleware.NewSessionCookie(session.SessionID, session.ExpiresAt, h.Secure))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}

// Logout drops the session named by the cookie, if any, and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		httputil.WriteError(w, r, httputil.Unauthorized("Couldn't find cookie"))
		return
	}

	if err := h.DB.WithContext(r.Context()).
		Where("session_id = ?", cookie.Value).
		Delete(&Session{}).Error; err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, middleware.ClearSessionCookie(h.Secure))
	httputil.Success(w, "로그아웃 되었습니다")
}

type MeResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	CrewRole string `json:"crew_role"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var user User
	if err := h.DB.WithContext(r.Context()).First(&user, "user_id = ?", userID).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, "사용자를 찾을 수 없습니다", ""))
		return
	}

	resp := MeResponse{UserID: user.UserID, Username: user.Username, CrewRole: models.RoleMember}
	var profile models.Profile
	err := h.DB.WithContext(r.Context()).First(&profile, "id = ?", userID).Error
	switch {
	case err == nil:
		resp.Nickname = profile.Nickname
		resp.CrewRole = profile.CrewRole
	case !errors.Is(err, gorm.ErrRecordNotFound):
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req updatePasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httputil.WriteError(w, r, httputil.BadRequest("현재 비밀번호와 새 비밀번호를 입력해주세요"))
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < minPasswordLength {
		httputil.WriteError(w, r, httputil.BadRequest("비밀번호는 8자 이상이어야 합니다"))
		return
	}

	var user User
	if err := h.DB.WithContext(r.Context()).First(&user, "user_id = ?", userID).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, "사용자를 찾을 수 없습니다", ""))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
		httputil.WriteError(w, r, httputil.Unauthorized("현재 비밀번호가 올바르지 않습니다"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	if err := h.DB.WithContext(r.Context()).
		Model(&user).
		Update("hashed_password", string(hashed)).Error; err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	httputil.Success(w, "비밀번호가 변경되었습니다")
}
