package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextUserIDKey        contextKey = "userID"
	ContextSessionErrKey    contextKey = "sessionErr"
	ContextAdminUsernameKey contextKey = "adminUsername"
)

// SessionData is what the session store hands back to the middleware.
type SessionData struct {
	UserID    string
	ExpiresAt time.Time
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok && userIDStr != ""
}

// GetUserUUIDFromContext is GetUserIDFromContext for handlers that query uuid columns.
func GetUserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetSessionErrorFromContext returns why the caller ended up anonymous, if a
// session cookie was presented but rejected.
func GetSessionErrorFromContext(ctx context.Context) (string, bool) {
	reason, ok := ctx.Value(ContextSessionErrKey).(string)
	return reason, ok
}

func GetAdminUsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ContextAdminUsernameKey).(string)
	return name, ok && name != ""
}
