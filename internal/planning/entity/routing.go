package entity

import (
	"time"
)

// RoutingStatus 工艺路线状态（与BOM同一套版本规则）
const (
	RoutingStatusDraft    = "draft"
	RoutingStatusReleased = "released"
	RoutingStatusObsolete = "obsolete"
)

// Routing 工艺路线头（按产品+版本）
type Routing struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	ProductID     string     `json:"product_id" gorm:"size:32;not null;index"`
	Version       string     `json:"version" gorm:"size:16;not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:draft"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	PredecessorID *string    `json:"predecessor_id" gorm:"size:32"`
	ReleasedBy    string     `json:"released_by" gorm:"size:64"`
	ReleasedAt    *time.Time `json:"released_at"`
	Notes         string     `json:"notes" gorm:"type:text"`
	CreatedBy     string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Operations []RoutingOperation `json:"operations,omitempty" gorm:"foreignKey:RoutingID"`
}

func (Routing) TableName() string {
	return "aps_routings"
}

// EffectiveOn 判断工艺路线在指定日期是否生效
func (r *Routing) EffectiveOn(t time.Time) bool {
	if r.Status != RoutingStatusReleased {
		return false
	}
	if t.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !t.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// RoutingOperation 工序：工作中心 + 标准工时
type RoutingOperation struct {
	ID                string     `json:"id" gorm:"primaryKey;size:32"`
	RoutingID         string     `json:"routing_id" gorm:"size:32;not null;index"`
	OperationNo       int        `json:"operation_no" gorm:"not null"` // 路线内唯一
	Name              string     `json:"name" gorm:"size:128"`
	WorkCenterID      string     `json:"work_center_id" gorm:"size:32;not null;index"`
	SetupMinutes      float64    `json:"setup_minutes" gorm:"type:decimal(10,2);default:0"`
	RunMinutesPerUnit float64    `json:"run_minutes_per_unit" gorm:"type:decimal(10,4);default:0"`
	OverlapFactor     float64    `json:"overlap_factor" gorm:"type:decimal(6,4);default:0"` // 与下一道工序的重叠比例 0~1
	Subcontract       bool       `json:"subcontract" gorm:"default:false"`
	SubcontractCost   float64    `json:"subcontract_cost" gorm:"type:decimal(12,4);default:0"` // 单件委外费用
	EffectiveFrom     time.Time  `json:"effective_from"`
	EffectiveTo       *time.Time `json:"effective_to"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (RoutingOperation) TableName() string {
	return "aps_routing_operations"
}

// TotalMinutes 数量Q的工序总工时（分钟），不含重叠扣减
func (o *RoutingOperation) TotalMinutes(qty float64) float64 {
	return o.SetupMinutes + o.RunMinutesPerUnit*qty
}

// EffectiveOn 判断工序在指定日期是否生效
func (o *RoutingOperation) EffectiveOn(t time.Time) bool {
	if !o.EffectiveFrom.IsZero() && t.Before(o.EffectiveFrom) {
		return false
	}
	if o.EffectiveTo != nil && !t.Before(*o.EffectiveTo) {
		return false
	}
	return true
}
