package entity

import (
	"time"
)

// DemandSourceType 独立需求来源
const (
	DemandSourceSales    = "sales"
	DemandSourceForecast = "forecast"
)

// Demand 独立需求（销售订单/预测）
type Demand struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID  string    `json:"product_id" gorm:"size:32;not null;index"`
	Quantity   float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	DueDate    time.Time `json:"due_date" gorm:"not null;index"`
	SourceType string    `json:"source_type" gorm:"size:20;not null"` // sales | forecast
	SourceID   string    `json:"source_id" gorm:"size:64"`
	Notes      string    `json:"notes" gorm:"type:text"`
	CreatedBy  string    `json:"created_by" gorm:"size:64"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Demand) TableName() string {
	return "aps_demands"
}

// ReceiptSourceType 在途来源
const (
	ReceiptSourcePurchaseOrder = "purchase_order"
	ReceiptSourceWorkOrder     = "work_order"
)

// ScheduledReceipt 计划入库（采购在途/在制完工）
type ScheduledReceipt struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID  string    `json:"product_id" gorm:"size:32;not null;index"`
	Quantity   float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	DueDate    time.Time `json:"due_date" gorm:"not null;index"`
	SourceType string    `json:"source_type" gorm:"size:20;not null"`
	SourceID   string    `json:"source_id" gorm:"size:64"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ScheduledReceipt) TableName() string {
	return "aps_scheduled_receipts"
}

// Inventory 库存快照（按产品+仓库）
type Inventory struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	ProductID    string     `json:"product_id" gorm:"size:32;not null;index"`
	WarehouseID  string     `json:"warehouse_id" gorm:"size:32;index"`
	Quantity     float64    `json:"quantity" gorm:"type:decimal(12,4);default:0"`
	AvailableQty float64    `json:"available_qty" gorm:"type:decimal(12,4);default:0"`
	Unit         string     `json:"unit" gorm:"size:20;default:pcs"`
	LastMovedAt  *time.Time `json:"last_moved_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Inventory) TableName() string {
	return "aps_inventories"
}
