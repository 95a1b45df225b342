package entity

import (
	"time"
)

// BOMStatus BOM状态
const (
	BOMStatusDraft    = "draft"
	BOMStatusReleased = "released"
	BOMStatusObsolete = "obsolete"
)

// BOM 物料清单头（按产品+版本）
// 同一产品在任意时间点只能有一个生效（released且在有效期内）的BOM；
// released后除状态流转到obsolete外不可修改
type BOM struct {
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

	Lines []BOMLine `json:"lines,omitempty" gorm:"foreignKey:BOMID"`
}

func (BOM) TableName() string {
	return "aps_boms"
}

// EffectiveOn 判断BOM在指定日期是否生效（仅对released状态有意义）
func (b *BOM) EffectiveOn(t time.Time) bool {
	if b.Status != BOMStatusReleased {
		return false
	}
	if t.Before(b.EffectiveFrom) {
		return false
	}
	if b.EffectiveTo != nil && !t.Before(*b.EffectiveTo) {
		return false
	}
	return true
}

// BOMLine BOM行项：父产品单位用量 + 损耗率
type BOMLine struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	BOMID         string     `json:"bom_id" gorm:"size:32;not null;index"`
	LineNumber    int        `json:"line_number" gorm:"not null"`
	ComponentID   string     `json:"component_id" gorm:"size:32;not null;index"`
	Quantity      float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	ScrapFactor   float64    `json:"scrap_factor" gorm:"type:decimal(6,4);default:0"` // 0.05 = 5%损耗
	Unit          string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	OperationNo   *int       `json:"operation_no"` // 工艺路线中消耗该物料的工序号
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (BOMLine) TableName() string {
	return "aps_bom_lines"
}

// QuantityWithScrap 含损耗用量 = 用量 / (1 - 损耗率)
func (l *BOMLine) QuantityWithScrap() float64 {
	if l.ScrapFactor <= 0 || l.ScrapFactor >= 1 {
		return l.Quantity
	}
	return l.Quantity / (1 - l.ScrapFactor)
}

// EffectiveOn 判断行项在指定日期是否生效
func (l *BOMLine) EffectiveOn(t time.Time) bool {
	if !l.EffectiveFrom.IsZero() && t.Before(l.EffectiveFrom) {
		return false
	}
	if l.EffectiveTo != nil && !t.Before(*l.EffectiveTo) {
		return false
	}
	return true
}
