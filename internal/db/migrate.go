package db

import (
	"orderbackup/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Order{},
		&models.OrderEvent{},
		&models.SyncHistory{},
		&models.FailedOrderProcessing{},
		&models.OrderTechnicalFlags{},
		&models.SystemSetting{},
	)
}
