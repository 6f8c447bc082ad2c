package auth

import (
	"context"
	"time"

	"github.com/runcrew/runcrew-backend/internal/utils"
	"gorm.io/gorm"
)

// SessionStore implements middleware.SessionFetcher on app_auth.sessions.
type SessionStore struct {
	DB *gorm.DB
}

func (s SessionStore) FindSessionByID(ctx context.Context, id string) (utils.SessionData, error) {
	var session Session

	err := s.DB.WithContext(ctx).First(&session, "session_id = ?", id).Error
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// RefreshSession moves the expiry of an existing session. A session that
// vanished in the meantime is reported as not found.
func (s SessionStore) RefreshSession(ctx context.Context, id string, expiresAt time.Time) error {
	res := s.DB.WithContext(ctx).
		Model(&Session{}).
		Where("session_id = ?", id).
		Update("expires_at", expiresAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
