package entity

import (
	"time"
)

// MRPRunStatus MRP运行状态
const (
	MRPStatusRunning   = "RUNNING"
	MRPStatusCompleted = "COMPLETED"
	MRPStatusFailed    = "FAILED"
	MRPStatusApplied   = "APPLIED"
)

// PlannedOrderType 计划订单类型：有生效BOM的产品为生产，否则为采购
const (
	OrderTypeManufacturing = "manufacturing"
	OrderTypePurchase      = "purchase"
)

// MRPRun MRP运行记录
type MRPRun struct {
	ID                string     `json:"id" gorm:"primaryKey;size:32"`
	RunCode           string     `json:"run_code" gorm:"size:50;not null;uniqueIndex"`
	Status            string     `json:"status" gorm:"size:20;not null;default:RUNNING"`
	ProductID         string     `json:"product_id" gorm:"size:32;not null;index"`
	HorizonStart      time.Time  `json:"horizon_start"`
	HorizonEnd        time.Time  `json:"horizon_end"`
	BucketDays        int        `json:"bucket_days" gorm:"default:1"`
	LotSizingStrategy string     `json:"lot_sizing_strategy" gorm:"size:32"`
	TotalRequirements int        `json:"total_requirements" gorm:"default:0"`
	TotalOrders       int        `json:"total_orders" gorm:"default:0"`
	WOsGenerated      int        `json:"wos_generated" gorm:"default:0"`
	Warnings          string     `json:"warnings" gorm:"type:text"`
	Errors            string     `json:"errors" gorm:"type:text"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	AppliedAt         *time.Time `json:"applied_at"`
	CreatedBy         string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (MRPRun) TableName() string {
	return "aps_mrp_runs"
}

// MRPRequirement 物料需求快照：每个(产品, 需求日期, 层级)一条，算完即不可变
type MRPRequirement struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	RunID             string    `json:"run_id" gorm:"size:32;index"`
	ProductID         string    `json:"product_id" gorm:"size:32;not null;index"`
	ParentProductID   string    `json:"parent_product_id" gorm:"size:32"`
	BOMLevel          int       `json:"bom_level" gorm:"default:0"` // 0 = 顶层
	GrossRequirement  float64   `json:"gross_requirement" gorm:"type:decimal(12,4);default:0"`
	NetRequirement    float64   `json:"net_requirement" gorm:"type:decimal(12,4);default:0"`
	RequiredDate      time.Time `json:"required_date"`
	OrderDate         time.Time `json:"order_date"` // 需求日 - 提前期，不早于计划期起点
	OnHand            float64   `json:"on_hand" gorm:"type:decimal(12,4);default:0"`
	ScheduledReceipts float64   `json:"scheduled_receipts" gorm:"type:decimal(12,4);default:0"`
	SafetyStock       float64   `json:"safety_stock" gorm:"type:decimal(12,4);default:0"`
	CreatedAt         time.Time `json:"created_at"`
}

func (MRPRequirement) TableName() string {
	return "aps_mrp_requirements"
}

// PlannedOrder 计划订单（批量化后的供应建议）
type PlannedOrder struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	RunID       string    `json:"run_id" gorm:"size:32;index"`
	ProductID   string    `json:"product_id" gorm:"size:32;not null;index"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	OriginalQty float64   `json:"original_qty" gorm:"type:decimal(12,4);not null"` // 批量化前净需求
	StartDate   time.Time `json:"start_date" gorm:"index"`
	DueDate     time.Time `json:"due_date"`
	OrderType   string    `json:"order_type" gorm:"size:20;not null"` // manufacturing | purchase
	BOMLevel    int       `json:"bom_level" gorm:"default:0"`
	LotSizing   string    `json:"lot_sizing" gorm:"size:32"`
	Applied     bool      `json:"applied" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PlannedOrder) TableName() string {
	return "aps_planned_orders"
}
