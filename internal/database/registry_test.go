package database

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"repairhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRegistry(t *testing.T) *TenantRegistry {
	t.Helper()
	registry := NewTenantRegistry(t.TempDir())
	t.Cleanup(registry.DisconnectAll)
	return registry
}

func TestGetOrCreateCreatesStoreFile(t *testing.T) {
	registry := newTestRegistry(t)

	handle, err := registry.GetOrCreate(7)
	require.NoError(t, err)
	require.NotNil(t, handle)

	// 库文件按租户ID命名创建
	_, err = os.Stat(filepath.Join(registry.dir, models.TenantStoreFileName(7)))
	require.NoError(t, err)

	// 全量模式已建好
	for _, model := range TenantModels() {
		assert.True(t, handle.Migrator().HasTable(model))
	}
}

func TestGetOrCreateReturnsSameHandle(t *testing.T) {
	registry := newTestRegistry(t)

	first, err := registry.GetOrCreate(1)
	require.NoError(t, err)
	second, err := registry.GetOrCreate(1)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.Len())
}

func TestGetOrCreateConcurrentSingleHandle(t *testing.T) {
	registry := newTestRegistry(t)

	const workers = 20
	handles := make([]*gorm.DB, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			handle, err := registry.GetOrCreate(3)
			assert.NoError(t, err)
			handles[idx] = handle
		}(i)
	}
	wg.Wait()

	// 并发首次解析收敛到同一个连接
	for i := 1; i < workers; i++ {
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, 1, registry.Len())
}

func TestGetOrCreateIsolatesTenants(t *testing.T) {
	registry := newTestRegistry(t)

	a, err := registry.GetOrCreate(1)
	require.NoError(t, err)
	b, err := registry.GetOrCreate(2)
	require.NoError(t, err)

	require.NoError(t, a.Create(&models.Setting{Key: "base_url", Value: "https://a.example"}).Error)

	var count int64
	require.NoError(t, b.Model(&models.Setting{}).Count(&count).Error)
	assert.Zero(t, count, "租户库之间不得共享数据")
}

func TestGetOrCreateRejectsZeroTenant(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.GetOrCreate(0)
	assert.Error(t, err)
}

func TestConvergeIsIdempotent(t *testing.T) {
	registry := newTestRegistry(t)

	handle, err := registry.GetOrCreate(5)
	require.NoError(t, err)
	require.NoError(t, handle.Create(&models.Setting{Key: "tax_rate", Value: "19.0"}).Error)

	tablesBefore, err := handle.Migrator().GetTables()
	require.NoError(t, err)

	// 重复收敛：结构和数据都不变
	require.NoError(t, registry.Converge(5))
	require.NoError(t, registry.Converge(5))

	tablesAfter, err := handle.Migrator().GetTables()
	require.NoError(t, err)
	assert.ElementsMatch(t, tablesBefore, tablesAfter)

	var count int64
	require.NoError(t, handle.Model(&models.Setting{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDisconnectAllEmptiesRegistry(t *testing.T) {
	registry := NewTenantRegistry(t.TempDir())

	_, err := registry.GetOrCreate(1)
	require.NoError(t, err)
	_, err = registry.GetOrCreate(2)
	require.NoError(t, err)
	require.Equal(t, 2, registry.Len())

	registry.DisconnectAll()
	assert.Zero(t, registry.Len())

	// 停机清空后仍可重新打开
	handle, err := registry.GetOrCreate(1)
	require.NoError(t, err)
	assert.NotNil(t, handle)
}

func TestGetOrCreateKeepsHandleWhenUpgradeFails(t *testing.T) {
	registry := newTestRegistry(t)

	// 预置一个模式同步必然失败的旧库：settings表名被视图占用
	path := filepath.Join(registry.dir, models.TenantStoreFileName(4))
	seed, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, seed.Exec("CREATE VIEW settings AS SELECT 1 AS id").Error)
	seedDB, err := seed.DB()
	require.NoError(t, err)
	require.NoError(t, seedDB.Close())

	// 旧库升级失败只记录日志，连接照常返回
	handle, err := registry.GetOrCreate(4)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, 1, registry.Len())

	// 库文件保留，后续解析复用同一连接
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := registry.GetOrCreate(4)
	require.NoError(t, err)
	assert.Same(t, handle, again)
}

func TestGetOrCreateFailsOnCorruptPath(t *testing.T) {
	registry := newTestRegistry(t)

	// 用同名目录占位，打开必然失败
	require.NoError(t, os.MkdirAll(filepath.Join(registry.dir, models.TenantStoreFileName(9)), 0755))

	_, err := registry.GetOrCreate(9)
	assert.Error(t, err)
	assert.Zero(t, registry.Len())
}
