package database

import (
	"gorm.io/gorm"

	"clinic-federation-service/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.PeripheralNode{},
		&domain.ExchangeToken{},
		&domain.Session{},
	)
}
