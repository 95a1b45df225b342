package entity

import (
	"strconv"
	"strings"
	"time"
)

// WorkCenterStatus 工作中心状态
const (
	WorkCenterStatusActive   = "active"
	WorkCenterStatusInactive = "inactive"
)

// WorkCenter 工作中心主数据
// 理论日产能 = 每日工时 × 效率 × 产能单元数
type WorkCenter struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	Code          string  `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name          string  `json:"name" gorm:"size:128;not null"`
	Type          string  `json:"type" gorm:"size:32"` // machining, assembly, test...
	HoursPerDay   float64 `json:"hours_per_day" gorm:"type:decimal(6,2);default:8"`
	Efficiency    float64 `json:"efficiency" gorm:"type:decimal(6,4);default:1"` // 0~1
	CapacityUnits int     `json:"capacity_units" gorm:"default:1"`               // 并行机台/班组数
	WorkingDays   string  `json:"working_days" gorm:"size:16;default:'1,2,3,4,5'"` // ISO周几，1=周一

	// 产能调节
	ShiftHours          float64 `json:"shift_hours" gorm:"type:decimal(6,2);default:8"`
	OvertimeRatePerHour float64 `json:"overtime_rate_per_hour" gorm:"type:decimal(12,4);default:0"`

	// 成本费率（小时费率，用于工艺路线成本核算）
	LaborRatePerHour    float64 `json:"labor_rate_per_hour" gorm:"type:decimal(12,4);default:0"`
	MachineRatePerHour  float64 `json:"machine_rate_per_hour" gorm:"type:decimal(12,4);default:0"`
	OverheadRatePerHour float64 `json:"overhead_rate_per_hour" gorm:"type:decimal(12,4);default:0"`

	// 替代工作中心：单一回退引用，不构成图
	AlternateID *string `json:"alternate_id" gorm:"size:32"`

	Status    string    `json:"status" gorm:"size:20;not null;default:active"`
	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkCenter) TableName() string {
	return "aps_work_centers"
}

// TheoreticalDailyHours 理论日可用工时
func (w *WorkCenter) TheoreticalDailyHours() float64 {
	eff := w.Efficiency
	if eff <= 0 {
		eff = 1
	}
	units := w.CapacityUnits
	if units <= 0 {
		units = 1
	}
	return w.HoursPerDay * eff * float64(units)
}

// WorksOn 判断指定星期是否为工作日
func (w *WorkCenter) WorksOn(d time.Weekday) bool {
	// ISO: Monday=1 ... Sunday=7
	iso := int(d)
	if iso == 0 {
		iso = 7
	}
	for _, part := range strings.Split(w.WorkingDays, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && n == iso {
			return true
		}
	}
	return false
}

// WorkCenterClosure 工作中心停工日（节假日/检修）
type WorkCenterClosure struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	WorkCenterID string    `json:"work_center_id" gorm:"size:32;not null;index"`
	Date         time.Time `json:"date" gorm:"not null;index"`
	Reason       string    `json:"reason" gorm:"size:255"`
	CreatedBy    string    `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time `json:"created_at"`
}

func (WorkCenterClosure) TableName() string {
	return "aps_work_center_closures"
}

// WorkCenterOvertime 加班登记：在原日历之外追加的可用工时
type WorkCenterOvertime struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	WorkCenterID string    `json:"work_center_id" gorm:"size:32;not null;index"`
	Date         time.Time `json:"date" gorm:"not null;index"`
	Hours        float64   `json:"hours" gorm:"type:decimal(6,2);not null"`
	RatePerHour  float64   `json:"rate_per_hour" gorm:"type:decimal(12,4);default:0"`
	Reason       string    `json:"reason" gorm:"size:255"`
	CreatedBy    string    `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time `json:"created_at"`
}

func (WorkCenterOvertime) TableName() string {
	return "aps_work_center_overtimes"
}
