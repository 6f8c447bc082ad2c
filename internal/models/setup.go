package models

import (
	"fmt"

	"github.com/runcrew/runcrew-backend/internal/db"
	"gorm.io/gorm"
)

// Migrate creates or updates every application table.
func Migrate(d *gorm.DB) error {
	if err := db.Prepare(d, Schema); err != nil {
		return err
	}

	if err := d.AutoMigrate(
		&Profile{},
		&Crew{},
		&CrewMember{},
		&Mission{},
		&MissionCompletion{},
		&Record{},
		&Comment{},
		&CommentLike{},
		&Notification{},
	); err != nil {
		return fmt.Errorf("auto-migrate running tables: %w", err)
	}

	// Case insensitive uniqueness for crew names and nicknames.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS crews_name_ci_unique ON running.crews (LOWER(name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS profiles_nickname_ci_unique ON running.profiles (LOWER(nickname))`,
	} {
		if err := d.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
