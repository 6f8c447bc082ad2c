package auth

import (
	"fmt"

	"github.com/runcrew/runcrew-backend/internal/db"
	"gorm.io/gorm"
)

const Schema = "app_auth"

// Init creates the identity tables.
func Init(d *gorm.DB) error {
	if err := db.Prepare(d, Schema); err != nil {
		return err
	}
	if err := d.AutoMigrate(&User{}, &Session{}); err != nil {
		return fmt.Errorf("auto-migrate auth tables: %w", err)
	}
	return nil
}
