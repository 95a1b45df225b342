package entity

import (
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusPlanned    = "PLANNED"
	WOStatusReleased   = "RELEASED"
	WOStatusInProgress = "IN_PROGRESS"
	WOStatusOnHold     = "ON_HOLD"
	WOStatusCompleted  = "COMPLETED"
	WOStatusClosed     = "CLOSED"
	WOStatusCancelled  = "CANCELLED"
)

// WorkOrderLineType 工单行类型
const (
	WOLineTypeMaterial  = "material"
	WOLineTypeOperation = "operation"
)

// woTransitions 合法状态流转表：当前状态 → 允许的目标状态
// 所有流转判断集中在这里，业务代码不允许散落status判断
var woTransitions = map[string][]string{
	WOStatusPlanned:    {WOStatusReleased, WOStatusCancelled},
	WOStatusReleased:   {WOStatusInProgress, WOStatusOnHold, WOStatusCancelled},
	WOStatusInProgress: {WOStatusCompleted, WOStatusOnHold, WOStatusClosed, WOStatusCancelled},
	WOStatusOnHold:     {WOStatusReleased, WOStatusInProgress, WOStatusCancelled},
	WOStatusCompleted:  {WOStatusClosed},
	WOStatusClosed:     {},
	WOStatusCancelled:  {},
}

// WorkOrder 生产工单
type WorkOrder struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Code         string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProductID    string     `json:"product_id" gorm:"size:32;not null;index"`
	Quantity     float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	CompletedQty float64    `json:"completed_qty" gorm:"type:decimal(12,4);default:0"`
	ScrapQty     float64    `json:"scrap_qty" gorm:"type:decimal(12,4);default:0"`
	Status       string     `json:"status" gorm:"size:20;not null;default:PLANNED;index"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	ActualStart  *time.Time `json:"actual_start"`
	ActualEnd    *time.Time `json:"actual_end"`

	// 暂停时记录前一状态用于恢复
	HoldReason     string `json:"hold_reason" gorm:"size:255"`
	PreviousStatus string `json:"previous_status" gorm:"size:20"`

	ParentID     *string `json:"parent_id" gorm:"size:32"`      // 上级工单
	SalesOrderID *string `json:"sales_order_id" gorm:"size:32"` // 来源销售订单
	SourceType   string  `json:"source_type" gorm:"size:20"`    // MRP, MANUAL
	SourceID     string  `json:"source_id" gorm:"size:64"`
	Notes        string  `json:"notes" gorm:"type:text"`

	CreatedBy string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []WorkOrderLine `json:"lines,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "aps_work_orders"
}

// CanTransition 判断当前状态能否流转到目标状态
func (w *WorkOrder) CanTransition(target string) bool {
	for _, t := range woTransitions[w.Status] {
		if t == target {
			return true
		}
	}
	return false
}

// CanCancel 工单是否可取消（非终态）
func (w *WorkOrder) CanCancel() bool {
	switch w.Status {
	case WOStatusPlanned, WOStatusReleased, WOStatusInProgress, WOStatusOnHold:
		return true
	}
	return false
}

// CanModify 工单是否可修改（数量调整、行重建）
func (w *WorkOrder) CanModify() bool {
	return w.Status == WOStatusPlanned || w.Status == WOStatusReleased
}

// CanReschedule 工单是否可改期
func (w *WorkOrder) CanReschedule() bool {
	return w.Status == WOStatusPlanned || w.Status == WOStatusReleased
}

// CanIssueMaterial 工单是否可领料
func (w *WorkOrder) CanIssueMaterial() bool {
	return w.Status == WOStatusReleased || w.Status == WOStatusInProgress
}

// WorkOrderLine 工单行：物料行与工序行共用一张表，按line_type区分
type WorkOrderLine struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string `json:"work_order_id" gorm:"size:32;not null;index"`
	LineNumber  int    `json:"line_number" gorm:"not null"`
	LineType    string `json:"line_type" gorm:"size:20;not null"` // material | operation

	// 物料行字段
	ComponentID string  `json:"component_id" gorm:"size:32;index"`
	PlannedQty  float64 `json:"planned_qty" gorm:"type:decimal(12,4);default:0"`
	IssuedQty   float64 `json:"issued_qty" gorm:"type:decimal(12,4);default:0"`
	Unit        string  `json:"unit" gorm:"size:20"`

	// 工序行字段
	OperationNo       int     `json:"operation_no" gorm:"default:0"`
	WorkCenterID      string  `json:"work_center_id" gorm:"size:32;index"`
	PlannedSetupHours float64 `json:"planned_setup_hours" gorm:"type:decimal(10,4);default:0"`
	PlannedRunHours   float64 `json:"planned_run_hours" gorm:"type:decimal(10,4);default:0"`
	ActualSetupHours  float64 `json:"actual_setup_hours" gorm:"type:decimal(10,4);default:0"`
	ActualRunHours    float64 `json:"actual_run_hours" gorm:"type:decimal(10,4);default:0"`
	Completed         bool    `json:"completed" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkOrderLine) TableName() string {
	return "aps_work_order_lines"
}
