package database

import (
	"repairhub/internal/models"

	"gorm.io/gorm"
)

// TenantModels 租户库模式 - 每个租户库包含的全部表
func TenantModels() []interface{} {
	return []interface{}{
		&models.Setting{},
		&models.Customer{},
		&models.RepairOrder{},
		&models.Quote{},
		&models.Invoice{},
	}
}

// syncTenantSchema 将租户库结构收敛到当前模式
// AutoMigrate是收敛式的：重复执行与执行一次结构效果相同
func syncTenantSchema(tenantDB *gorm.DB) error {
	return tenantDB.AutoMigrate(TenantModels()...)
}
