package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型 - 控制平面账号
// TenantID为空且角色为平台管理员时，表示跨租户操作控制平面
type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"unique;not null;size:50;index"`
	Email        string     `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	Name         string     `json:"name" gorm:"not null;size:100"`
	Phone        *string    `json:"phone" gorm:"size:20"`
	Role         string     `json:"role" gorm:"default:'tenant_member';size:20;index"`
	TenantID     *uint      `json:"tenant_id" gorm:"index"`
	Approved     bool       `json:"approved" gorm:"default:false"`
	Suspended    bool       `json:"suspended" gorm:"default:false"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户角色常量
const (
	RolePlatformAdmin = "platform_admin"
	RoleTenantMember  = "tenant_member"
	RoleClient        = "client"
)

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsPlatformAdmin 是否平台管理员
func (u *User) IsPlatformAdmin() bool {
	return u.Role == RolePlatformAdmin
}

// HasTenant 是否已归属租户
func (u *User) HasTenant() bool {
	return u.TenantID != nil && *u.TenantID > 0
}
