package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxOvertimeHoursPerDay 单日加班上限
const maxOvertimeHoursPerDay = 4

// CapacityLoadSource 负荷来源
const (
	LoadSourceWorkOrder    = "work_order"
	LoadSourcePlannedOrder = "planned_order"
)

// ResolutionAction 产能调节手段
const (
	ActionAlternateWorkCenter = "alternate_work_center"
	ActionOvertime            = "overtime"
	ActionReschedule          = "reschedule"
	ActionSplit               = "split"
	ActionAddShift            = "add_shift"
	ActionSubcontract         = "subcontract"
	ActionCancel              = "cancel"
)

// CapacityLoad 一条产能负荷记录
type CapacityLoad struct {
	SourceType string    `json:"source_type"` // work_order | planned_order
	SourceID   string    `json:"source_id"`
	ProductID  string    `json:"product_id"`
	Date       time.Time `json:"date"`
	Hours      float64   `json:"hours"`
}

// CapacityPeriod 单个时间桶的产能对比
type CapacityPeriod struct {
	Bucket         Bucket         `json:"bucket"`
	AvailableHours float64        `json:"available_hours"`
	LoadedHours    float64        `json:"loaded_hours"`
	Loads          []CapacityLoad `json:"loads,omitempty"`
}

// IsOverloaded 该桶是否超载
func (p *CapacityPeriod) IsOverloaded() bool {
	return p.LoadedHours > p.AvailableHours
}

// ExcessHours 超载工时（非负）
func (p *CapacityPeriod) ExcessHours() float64 {
	return math.Max(0, p.LoadedHours-p.AvailableHours)
}

// RemainingHours 剩余可用工时（非负）
func (p *CapacityPeriod) RemainingHours() float64 {
	return math.Max(0, p.AvailableHours-p.LoadedHours)
}

// CapacityProfile 工作中心在计划期内的产能全貌
type CapacityProfile struct {
	WorkCenterID string           `json:"work_center_id"`
	Horizon      PlanningHorizon  `json:"horizon"`
	Periods      []CapacityPeriod `json:"periods"`
}

// TotalAvailable 计划期总可用工时
func (p *CapacityProfile) TotalAvailable() float64 {
	var total float64
	for i := range p.Periods {
		total += p.Periods[i].AvailableHours
	}
	return total
}

// TotalLoaded 计划期总负荷工时
func (p *CapacityProfile) TotalLoaded() float64 {
	var total float64
	for i := range p.Periods {
		total += p.Periods[i].LoadedHours
	}
	return total
}

// IsOverloaded 总负荷是否超过总可用
func (p *CapacityProfile) IsOverloaded() bool {
	return p.TotalLoaded() > p.TotalAvailable()
}

// ExcessLoad 总超载工时（非负）
func (p *CapacityProfile) ExcessLoad() float64 {
	return math.Max(0, p.TotalLoaded()-p.TotalAvailable())
}

// OverloadedPeriods 逐桶超载的时间桶
func (p *CapacityProfile) OverloadedPeriods() []CapacityPeriod {
	var overloaded []CapacityPeriod
	for i := range p.Periods {
		if p.Periods[i].IsOverloaded() {
			overloaded = append(overloaded, p.Periods[i])
		}
	}
	return overloaded
}

// ResolutionSuggestion 产能调节建议
// RequiresApproval和CanAutoApply与优先级无关：优先级只决定展示顺序
type ResolutionSuggestion struct {
	ID                 string     `json:"id"`
	WorkCenterID       string     `json:"work_center_id"`
	Action             string     `json:"action"`
	Priority           int        `json:"priority"`
	Description        string     `json:"description"`
	ResolvedHours      float64    `json:"resolved_hours"`
	Cost               float64    `json:"cost"`
	TargetWorkCenterID string     `json:"target_work_center_id,omitempty"`
	TargetDate         *time.Time `json:"target_date,omitempty"`
	WorkOrderID        string     `json:"work_order_id,omitempty"`
	DaysDelayed        int        `json:"days_delayed,omitempty"`
	RequiresApproval   bool       `json:"requires_approval"`
	CanAutoApply       bool       `json:"can_auto_apply"`
}

// WorkOrderProvider 产能负荷计算所需的工单查询
type WorkOrderProvider interface {
	FindByWorkCenterAndDateRange(ctx context.Context, workCenterID string, from, to time.Time, statuses []string) ([]entity.WorkOrder, error)
}

// PlannedOrderProvider 产能负荷计算所需的计划订单查询
type PlannedOrderProvider interface {
	FindByDateRange(ctx context.Context, from, to time.Time) ([]entity.PlannedOrder, error)
}

type CapacityService struct {
	workCenters   *WorkCenterService
	routings      *RoutingService
	workOrders    WorkOrderProvider
	plannedOrders PlannedOrderProvider
	logger        *zap.Logger
}

func NewCapacityService(
	workCenters *WorkCenterService,
	routings *RoutingService,
	workOrders WorkOrderProvider,
	plannedOrders PlannedOrderProvider,
	logger *zap.Logger,
) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{
		workCenters:   workCenters,
		routings:      routings,
		workOrders:    workOrders,
		plannedOrders: plannedOrders,
		logger:        logger,
	}
}

// firmLoadStatuses 计入产能负荷的工单状态
var firmLoadStatuses = []string{entity.WOStatusPlanned, entity.WOStatusReleased, entity.WOStatusInProgress}

// CalculateLoad 计算工作中心在计划期内的产能负荷
// 负荷来源：(a) 工单工序行的计划工时 (b) MRP计划订单按工艺路线折算的工时
func (s *CapacityService) CalculateLoad(ctx context.Context, workCenterID string, horizon PlanningHorizon) (*CapacityProfile, error) {
	if _, err := s.workCenters.Get(ctx, workCenterID); err != nil {
		return nil, fmt.Errorf("work center not found: %w", err)
	}

	buckets := horizon.Buckets()
	periods := make([]CapacityPeriod, len(buckets))
	for i, b := range buckets {
		available, err := s.workCenters.PeriodAvailableHours(ctx, workCenterID, b.Start, b.End)
		if err != nil {
			return nil, err
		}
		periods[i] = CapacityPeriod{Bucket: b, AvailableHours: available}
	}

	loads, err := s.collectLoads(ctx, workCenterID, horizon)
	if err != nil {
		return nil, err
	}
	for _, load := range loads {
		for i := range periods {
			if periods[i].Bucket.Contains(load.Date) {
				periods[i].LoadedHours += load.Hours
				periods[i].Loads = append(periods[i].Loads, load)
				break
			}
		}
	}

	return &CapacityProfile{WorkCenterID: workCenterID, Horizon: horizon, Periods: periods}, nil
}

func (s *CapacityService) collectLoads(ctx context.Context, workCenterID string, horizon PlanningHorizon) ([]CapacityLoad, error) {
	var loads []CapacityLoad

	workOrders, err := s.workOrders.FindByWorkCenterAndDateRange(ctx, workCenterID, horizon.Start, horizon.End, firmLoadStatuses)
	if err != nil {
		return nil, fmt.Errorf("find work orders: %w", err)
	}
	for i := range workOrders {
		wo := &workOrders[i]
		if wo.PlannedStart == nil {
			continue
		}
		for j := range wo.Lines {
			line := &wo.Lines[j]
			if line.LineType != entity.WOLineTypeOperation || line.WorkCenterID != workCenterID || line.Completed {
				continue
			}
			loads = append(loads, CapacityLoad{
				SourceType: LoadSourceWorkOrder,
				SourceID:   wo.ID,
				ProductID:  wo.ProductID,
				Date:       *wo.PlannedStart,
				Hours:      line.PlannedSetupHours + line.PlannedRunHours,
			})
		}
	}

	plannedOrders, err := s.plannedOrders.FindByDateRange(ctx, horizon.Start, horizon.End)
	if err != nil {
		return nil, fmt.Errorf("find planned orders: %w", err)
	}
	for i := range plannedOrders {
		po := &plannedOrders[i]
		if po.OrderType != entity.OrderTypeManufacturing || po.Applied {
			continue
		}
		routing, err := s.routings.GetEffective(ctx, po.ProductID, po.StartDate)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("find effective routing for %s: %w", po.ProductID, err)
		}
		for _, op := range sortedOperations(routing, po.StartDate) {
			if op.WorkCenterID != workCenterID || op.Subcontract {
				continue
			}
			loads = append(loads, CapacityLoad{
				SourceType: LoadSourcePlannedOrder,
				SourceID:   po.ID,
				ProductID:  po.ProductID,
				Date:       po.StartDate,
				Hours:      op.TotalMinutes(po.Quantity) / 60,
			})
		}
	}
	return loads, nil
}

// SuggestResolutions 生成产能调节建议，按优先级升序
// 固定生成顺序：替代工作中心 → 加班 → 顺延 → 拆分 → 增班
func (s *CapacityService) SuggestResolutions(ctx context.Context, workCenterID string, horizon PlanningHorizon) ([]ResolutionSuggestion, error) {
	profile, err := s.CalculateLoad(ctx, workCenterID, horizon)
	if err != nil {
		return nil, err
	}
	if !profile.IsOverloaded() {
		return nil, nil
	}

	wc, err := s.workCenters.Get(ctx, workCenterID)
	if err != nil {
		return nil, fmt.Errorf("work center not found: %w", err)
	}
	excess := profile.ExcessLoad()
	var suggestions []ResolutionSuggestion

	// 1. 替代工作中心
	if wc.AlternateID != nil {
		altProfile, err := s.CalculateLoad(ctx, *wc.AlternateID, horizon)
		if err != nil {
			return nil, fmt.Errorf("calculate alternate load: %w", err)
		}
		spare := altProfile.TotalAvailable() - altProfile.TotalLoaded()
		if spare > 0 {
			transfer := math.Min(excess, spare)
			suggestions = append(suggestions, ResolutionSuggestion{
				ID:                 uuid.New().String()[:32],
				WorkCenterID:       workCenterID,
				Action:             ActionAlternateWorkCenter,
				Priority:           1,
				Description:        fmt.Sprintf("转移 %.1f 小时负荷到替代工作中心", transfer),
				ResolvedHours:      transfer,
				TargetWorkCenterID: *wc.AlternateID,
				CanAutoApply:       true,
			})
		}
	}

	// 2. 加班：每日上限4小时 × 计划期内工作日数
	workingDays := 0
	for day := horizon.Start; day.Before(horizon.End); day = day.AddDate(0, 0, 1) {
		if wc.WorksOn(day.Weekday()) {
			workingDays++
		}
	}
	maxOvertime := float64(maxOvertimeHoursPerDay * workingDays)
	if maxOvertime > 0 {
		hours := math.Min(excess, maxOvertime)
		suggestions = append(suggestions, ResolutionSuggestion{
			ID:            uuid.New().String()[:32],
			WorkCenterID:  workCenterID,
			Action:        ActionOvertime,
			Priority:      2,
			Description:   fmt.Sprintf("安排 %.1f 小时加班", hours),
			ResolvedHours: hours,
			Cost:          hours * wc.OvertimeRatePerHour,
			CanAutoApply:  true,
		})
	}

	// 3. 顺延：超载桶的负荷移到下一个有富余的桶
	for i := range profile.Periods {
		period := &profile.Periods[i]
		if !period.IsOverloaded() {
			continue
		}
		for j := i + 1; j < len(profile.Periods); j++ {
			target := &profile.Periods[j]
			remaining := target.RemainingHours()
			if remaining <= 0 {
				continue
			}
			move := math.Min(period.ExcessHours(), remaining)
			targetDate := target.Bucket.Start
			daysDelayed := int(target.Bucket.Start.Sub(period.Bucket.Start).Hours() / 24)
			suggestions = append(suggestions, ResolutionSuggestion{
				ID:            uuid.New().String()[:32],
				WorkCenterID:  workCenterID,
				Action:        ActionReschedule,
				Priority:      3,
				Description:   fmt.Sprintf("顺延 %.1f 小时负荷 %d 天", move, daysDelayed),
				ResolvedHours: move,
				TargetDate:    &targetDate,
				DaysDelayed:   daysDelayed,
				CanAutoApply:  true,
			})
			break
		}
	}

	// 4. 拆分：固定按50%超载量估算，必须人工审批
	suggestions = append(suggestions, ResolutionSuggestion{
		ID:               uuid.New().String()[:32],
		WorkCenterID:     workCenterID,
		Action:           ActionSplit,
		Priority:         4,
		Description:      fmt.Sprintf("拆分工单，预计化解 %.1f 小时", excess*0.5),
		ResolvedHours:    excess * 0.5,
		RequiresApproval: true,
	})

	// 5. 增班：只在加班上限不足以化解超载时建议
	if excess > maxOvertime {
		shiftHours := wc.ShiftHours * float64(workingDays)
		suggestions = append(suggestions, ResolutionSuggestion{
			ID:               uuid.New().String()[:32],
			WorkCenterID:     workCenterID,
			Action:           ActionAddShift,
			Priority:         5,
			Description:      fmt.Sprintf("增加班次，新增 %.1f 小时产能", shiftHours),
			ResolvedHours:    shiftHours,
			RequiresApproval: true,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Priority < suggestions[j].Priority })
	return suggestions, nil
}
