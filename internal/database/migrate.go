package database

import (
	"repairhub/internal/models"
	"repairhub/pkg/logger"
)

// Migrate 执行控制平面数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting control plane migration...")

	err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Subscription{},
	)

	if err != nil {
		appLogger.Errorf("Control plane migration failed: %v", err)
		return err
	}

	appLogger.Info("Control plane migration completed successfully")
	return nil
}
