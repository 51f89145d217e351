package models

import (
	"fmt"

	"gorm.io/datatypes"
)

// Tenant 租户模型 - 控制平面租户目录，每个租户对应一个独立数据库
type Tenant struct {
	BaseModel
	Name         string         `json:"name" gorm:"not null;size:100"`
	Code         string         `json:"code" gorm:"unique;not null;size:50;index"`
	ContactEmail string         `json:"contact_email" gorm:"size:100"`
	Phone        *string        `json:"phone" gorm:"size:20"`
	Address      *string        `json:"address" gorm:"size:255"`
	Status       string         `json:"status" gorm:"default:'active';size:20"`
	Metadata     datatypes.JSON `json:"metadata" gorm:"type:json"` // 展示/联系扩展信息
	UserCount    int            `json:"user_count" gorm:"-"`       // 用户数量，不存储在数据库中
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// StoreFileName 租户库文件名，与租户ID一一对应
func (t *Tenant) StoreFileName() string {
	return TenantStoreFileName(t.ID)
}

// TenantStoreFileName 根据租户ID计算库文件名
func TenantStoreFileName(tenantID uint) string {
	return fmt.Sprintf("tenant_%d.db", tenantID)
}

// 租户状态常量
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)
