// Package notifications stores per-user activity notices and serves the
// caller's inbox.
package notifications

import (
	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/models"
	"gorm.io/gorm"
)

// Notice is what a write path hands to Notify.
type Notice struct {
	Recipient  uuid.UUID
	Actor      uuid.UUID
	Type       string
	EntityType string
	EntityID   uuid.UUID
	Message    string
}

// Notify records n inside the caller's transaction. Acting on your own
// content never notifies you.
func Notify(tx *gorm.DB, n Notice) error {
	if n.Recipient == uuid.Nil || n.Recipient == n.Actor {
		return nil
	}
	return tx.Create(&models.Notification{
		UserID:     n.Recipient,
		ActorID:    n.Actor,
		Type:       n.Type,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		Message:    n.Message,
	}).Error
}
