package models

import (
	"time"
)

// 租户库业务模型
// 业务CRUD由上层表单模块负责，这里只定义结构供租户库模式同步使用

// Customer 客户
type Customer struct {
	BaseModel
	Name    string  `json:"name" gorm:"not null;size:100;index"`
	Email   *string `json:"email" gorm:"size:100;index"`
	Phone   *string `json:"phone" gorm:"size:20"`
	Address *string `json:"address" gorm:"size:255"`
	Notes   *string `json:"notes" gorm:"size:2000"`
}

// TableName 表名
func (c *Customer) TableName() string {
	return "customers"
}

// RepairOrder 维修工单
type RepairOrder struct {
	BaseModel
	CustomerID  uint       `json:"customer_id" gorm:"not null;index"`
	Device      string     `json:"device" gorm:"size:200"`
	Defect      string     `json:"defect" gorm:"size:2000"`
	Status      string     `json:"status" gorm:"default:'open';size:20;index"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TableName 表名
func (r *RepairOrder) TableName() string {
	return "repair_orders"
}

// 工单状态常量
const (
	RepairOrderStatusOpen      = "open"
	RepairOrderStatusInRepair  = "in_repair"
	RepairOrderStatusCompleted = "completed"
	RepairOrderStatusDelivered = "delivered"
)

// Quote 报价单
type Quote struct {
	BaseModel
	RepairOrderID uint    `json:"repair_order_id" gorm:"not null;index"`
	Number        string  `json:"number" gorm:"uniqueIndex;size:50"`
	TotalNet      float64 `json:"total_net"`
	TaxRate       float64 `json:"tax_rate"`
	Accepted      bool    `json:"accepted" gorm:"default:false"`
}

// TableName 表名
func (q *Quote) TableName() string {
	return "quotes"
}

// Invoice 发票
type Invoice struct {
	BaseModel
	RepairOrderID uint       `json:"repair_order_id" gorm:"not null;index"`
	Number        string     `json:"number" gorm:"uniqueIndex;size:50"`
	TotalNet      float64    `json:"total_net"`
	TaxRate       float64    `json:"tax_rate"`
	PaidAt        *time.Time `json:"paid_at"`
}

// TableName 表名
func (i *Invoice) TableName() string {
	return "invoices"
}
