package entity

import (
	"time"
)

// ProductStatus 产品状态
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product 产品/物料主数据
// 计划参数（提前期、安全库存）挂在产品上，供MRP净需求计算使用
type Product struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Code         string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"size:128;not null"`
	Specification string   `json:"specification" gorm:"size:255"`
	Unit         string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	LeadTimeDays int       `json:"lead_time_days" gorm:"default:0"`
	SafetyStock  float64   `json:"safety_stock" gorm:"type:decimal(12,4);default:0"`
	StandardCost float64   `json:"standard_cost" gorm:"type:decimal(12,4);default:0"`
	Status       string    `json:"status" gorm:"size:20;not null;default:active"`
	CreatedBy    string    `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "aps_products"
}
