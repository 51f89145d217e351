package services

import (
	"errors"

	"repairhub/internal/database"
	"repairhub/internal/models"
	"repairhub/pkg/logger"

	"gorm.io/gorm"
)

// DefaultScanLimit 跨租户回退扫描上限
// 线性扫描的明确规模上限，租户数超过几十家后应改为控制平面反向索引
const DefaultScanLimit = 25

// TenantPredicate 针对单个租户库求值的谓词
type TenantPredicate func(tenantID uint, store *gorm.DB) (bool, error)

// ScannerService 跨租户回退扫描服务
// 仅在没有任何租户上下文时使用（匿名短链访问、公共路由）
type ScannerService struct {
	db       *gorm.DB
	registry *database.TenantRegistry
	limit    int
}

// NewScannerService 创建扫描服务，limit<=0时使用默认上限
func NewScannerService(db *gorm.DB, registry *database.TenantRegistry, limit int) *ScannerService {
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	return &ScannerService{
		db:       db,
		registry: registry,
		limit:    limit,
	}
}

// Scan 按目录顺序在上限内逐租户求值谓词，返回首个命中的租户ID
// 单个租户打开或查询失败只记录并跳过，绝不中断整个扫描
// 扫完上限无命中返回ErrNotFound，属正常结果
func (s *ScannerService) Scan(predicate TenantPredicate) (uint, error) {
	var tenants []*models.Tenant
	err := s.db.Model(&models.Tenant{}).
		Order("created_at ASC, id ASC").
		Limit(s.limit).
		Find(&tenants).Error
	if err != nil {
		return 0, err
	}

	appLogger := logger.GetLogger()
	for _, tenant := range tenants {
		store, err := s.registry.GetOrCreate(tenant.ID)
		if err != nil {
			appLogger.Warnf("Scan: skip tenant %d, open failed: %v", tenant.ID, err)
			continue
		}

		matched, err := predicate(tenant.ID, store)
		if err != nil {
			appLogger.Warnf("Scan: skip tenant %d, predicate failed: %v", tenant.ID, err)
			continue
		}
		if matched {
			return tenant.ID, nil
		}
	}

	return 0, ErrNotFound
}

// FindSetting 在上限内查找第一个拥有指定设置键的租户，返回租户ID和值
func (s *ScannerService) FindSetting(key string) (uint, string, error) {
	var value string
	tenantID, err := s.Scan(func(_ uint, store *gorm.DB) (bool, error) {
		var setting models.Setting
		if err := store.Where("key = ?", key).First(&setting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		if setting.Value == "" {
			return false, nil
		}
		value = setting.Value
		return true, nil
	})
	if err != nil {
		return 0, "", err
	}
	return tenantID, value, nil
}
