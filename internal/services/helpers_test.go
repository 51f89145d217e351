package services

import (
	"path/filepath"
	"testing"

	"repairhub/internal/database"
	"repairhub/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestEnv 建一套隔离环境：sqlite控制平面 + 独立租户库注册表
func newTestEnv(t *testing.T) (*gorm.DB, *database.TenantRegistry) {
	t.Helper()

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "control.db")+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.User{}, &models.Subscription{}))

	registry := database.NewTenantRegistry(filepath.Join(dir, "tenants"))
	t.Cleanup(registry.DisconnectAll)

	return db, registry
}

// createTenant 在目录中登记一个租户
func createTenant(t *testing.T, db *gorm.DB, name, code string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Name: name, Code: code, Status: models.TenantStatusActive}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// createUser 创建控制平面用户
func createUser(t *testing.T, db *gorm.DB, username, role string, tenantID *uint, approved bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Role:     role,
		TenantID: tenantID,
		Approved: approved,
	}
	require.NoError(t, user.SetPassword("test-password"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// writeSetting 直接写租户库设置（绕过缓存）
func writeSetting(t *testing.T, store *gorm.DB, key, value string) {
	t.Helper()
	require.NoError(t, store.Create(&models.Setting{Key: key, Value: value}).Error)
}
