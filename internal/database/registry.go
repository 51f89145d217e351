package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"repairhub/internal/models"
	"repairhub/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TenantRegistry 租户库连接注册表
// 不变式：每个租户ID在进程内最多持有一个活跃连接，连接随进程存活
// 显式对象而非包级全局，由main创建并注入，测试可各自隔离
type TenantRegistry struct {
	mu      sync.Mutex
	dir     string
	handles map[uint]*gorm.DB
	synced  map[uint]bool // 本进程内已完成模式同步的租户
}

// NewTenantRegistry 创建注册表，dir为租户库文件目录
func NewTenantRegistry(dir string) *TenantRegistry {
	return &TenantRegistry{
		dir:     dir,
		handles: make(map[uint]*gorm.DB),
		synced:  make(map[uint]bool),
	}
}

// GetOrCreate 获取或创建租户库连接
// 检查和插入在同一把锁内完成，并发首次解析收敛到同一个连接
func (r *TenantRegistry) GetOrCreate(tenantID uint) (*gorm.DB, error) {
	if tenantID == 0 {
		return nil, fmt.Errorf("无效的租户ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.handles[tenantID]; ok {
		return handle, nil
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("创建租户库目录失败: %v", err)
	}

	path := filepath.Join(r.dir, models.TenantStoreFileName(tenantID))
	info, statErr := os.Stat(path)
	existedBefore := statErr == nil && info.Mode().IsRegular()

	// busy_timeout应对并发请求下的短暂写锁
	handle, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开租户库失败: %v", err)
	}

	// 模式同步：新库失败致命并清理残留文件，存量库失败仅告警
	if !r.synced[tenantID] {
		if err := syncTenantSchema(handle); err != nil {
			if !existedBefore {
				closeHandle(handle)
				os.Remove(path)
				return nil, fmt.Errorf("初始化租户库模式失败: %v", err)
			}
			logger.GetLogger().Warnf("Tenant %d schema upgrade failed (store kept as-is): %v", tenantID, err)
		} else {
			r.synced[tenantID] = true
		}
	}

	r.handles[tenantID] = handle
	return handle, nil
}

// Converge 强制将租户库结构收敛到当前模式（维护任务使用）
func (r *TenantRegistry) Converge(tenantID uint) error {
	handle, err := r.GetOrCreate(tenantID)
	if err != nil {
		return err
	}
	if err := syncTenantSchema(handle); err != nil {
		return fmt.Errorf("租户%d模式收敛失败: %v", tenantID, err)
	}
	r.mu.Lock()
	r.synced[tenantID] = true
	r.mu.Unlock()
	return nil
}

// Dir 租户库文件目录
func (r *TenantRegistry) Dir() string {
	return r.dir
}

// Len 当前缓存的连接数
func (r *TenantRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// DisconnectAll 关闭全部连接并清空注册表，仅在进程停机时调用
func (r *TenantRegistry) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	appLogger := logger.GetLogger()
	for tenantID, handle := range r.handles {
		if err := closeHandle(handle); err != nil {
			appLogger.Errorf("Failed to close tenant %d store: %v", tenantID, err)
		}
	}
	r.handles = make(map[uint]*gorm.DB)
	r.synced = make(map[uint]bool)
}

func closeHandle(handle *gorm.DB) error {
	sqlDB, err := handle.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
