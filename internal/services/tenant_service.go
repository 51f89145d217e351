package services

import (
	"fmt"

	"repairhub/internal/models"

	"gorm.io/gorm"
)

// TenantService 租户目录服务（控制平面，平台管理员视图使用）
type TenantService struct {
	db *gorm.DB
}

// TenantStats 租户统计信息
type TenantStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *TenantService) GetWithFiltersAndPage(status, keyword string, page, pageSize int) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := s.db.Model(&models.Tenant{})

	// 添加过滤条件
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("name LIKE ? OR code LIKE ?", searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&tenants).Error
	if err != nil {
		return nil, 0, err
	}

	// 统计每个租户的用户数量
	for i := range tenants {
		var userCount int64
		s.db.Model(&models.User{}).Where("tenant_id = ?", tenants[i].ID).Count(&userCount)
		tenants[i].UserCount = int(userCount)
	}

	return tenants, total, nil
}

// GetByID 根据ID获取租户
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.First(&tenant, id).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetStats 租户状态统计
func (s *TenantService) GetStats() (*TenantStats, error) {
	stats := &TenantStats{}

	if err := s.db.Model(&models.Tenant{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusActive).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	stats.Inactive = stats.Total - stats.Active

	return stats, nil
}

// ListActiveIDs 按创建顺序列出激活租户ID（维护任务使用，limit<=0不限制）
func (s *TenantService) ListActiveIDs(limit int) ([]uint, error) {
	query := s.db.Model(&models.Tenant{}).
		Where("status = ?", models.TenantStatusActive).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []uint
	err := query.Pluck("id", &ids).Error
	return ids, err
}
