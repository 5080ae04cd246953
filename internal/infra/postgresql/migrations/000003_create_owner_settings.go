package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/hora/billing-engine/internal/repository"
	"gorm.io/gorm"
)

func createOwnerSettingsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_owner_settings",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.OwnerSettingsModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.OwnerSettingsModel{})
		},
	}
}
