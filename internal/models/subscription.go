package models

import (
	"time"
)

// Subscription 订阅模型 - 控制平面计费授权
// 计费webhook由外部处理，这里只作为租户解析的前置条件被消费
type Subscription struct {
	BaseModel
	TenantID         uint       `json:"tenant_id" gorm:"not null;uniqueIndex"`
	Plan             string     `json:"plan" gorm:"size:50"`
	Status           string     `json:"status" gorm:"default:'trialing';size:20;index"`
	TrialEndsAt      *time.Time `json:"trial_ends_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// TableName 表名
func (s *Subscription) TableName() string {
	return "subscriptions"
}

// 订阅状态常量
const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Entitled 租户当前是否有访问资格
// 试用中看试用期截止，已取消直接拒绝，其余状态放行
func (s *Subscription) Entitled(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusCanceled:
		return false
	case SubscriptionStatusTrialing:
		return s.TrialEndsAt == nil || s.TrialEndsAt.After(now)
	default:
		return true
	}
}
