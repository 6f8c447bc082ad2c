package profiles

import (
	"context"

	"github.com/runcrew/runcrew-backend/internal/models"
	"gorm.io/gorm"
)

// RoleStore implements middleware.RoleFetcher for the legacy admin tree.
type RoleStore struct {
	DB *gorm.DB
}

func (s RoleStore) CrewRole(ctx context.Context, userID string) (string, error) {
	var p models.Profile
	if err := s.DB.WithContext(ctx).Select("crew_role").First(&p, "id = ?", userID).Error; err != nil {
		return "", err
	}
	return p.CrewRole, nil
}
