package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/hora/billing-engine/internal/repository"
	"gorm.io/gorm"
)

func createPaymentsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_payments",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.PaymentModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PaymentModel{})
		},
	}
}
