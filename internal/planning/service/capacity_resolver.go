package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"go.uber.org/zap"
)

// maxRescheduleDays 顺延上限（天）
const maxRescheduleDays = 30

// maxOvertimeHoursPerSuggestion 单条加班建议的工时上限
const maxOvertimeHoursPerSuggestion = 24

// maxOvertimeScanDays 加班排期向后扫描的天数上限
const maxOvertimeScanDays = 365

// ApplyOptions 执行建议时的调用方上下文
type ApplyOptions struct {
	Approved  bool   `json:"approved"` // 审批标记，RequiresApproval的建议必须带
	Force     bool   `json:"force"`    // 强制执行CanAutoApply=false的建议
	AppliedBy string `json:"applied_by"`
}

// ApplyResult 单条建议的执行结果
type ApplyResult struct {
	Applied bool   `json:"applied"`
	Message string `json:"message"`
}

// CapacityResolver 按建议类型分发到具体处理器
// 拆分/委外/增班只记录意图（需要核心之外的流程），不落实际变更
type CapacityResolver struct {
	workCenters *WorkCenterService
	workOrders  *WorkOrderService
	capacity    *CapacityService
	logger      *zap.Logger
}

func NewCapacityResolver(workCenters *WorkCenterService, workOrders *WorkOrderService, capacity *CapacityService, logger *zap.Logger) *CapacityResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityResolver{workCenters: workCenters, workOrders: workOrders, capacity: capacity, logger: logger}
}

// ApplySuggestion 执行单条建议
// RequiresApproval且未审批、或CanAutoApply=false且未强制时拒绝执行
func (r *CapacityResolver) ApplySuggestion(ctx context.Context, sug *ResolutionSuggestion, opts ApplyOptions) (*ApplyResult, error) {
	if sug.RequiresApproval && !opts.Approved {
		return nil, fmt.Errorf("建议 %s 需要审批后才能执行", sug.Action)
	}
	if !sug.CanAutoApply && !opts.Force {
		return nil, fmt.Errorf("建议 %s 不允许自动执行", sug.Action)
	}

	switch sug.Action {
	case ActionOvertime:
		return r.applyOvertime(ctx, sug, opts)
	case ActionAlternateWorkCenter:
		return r.applyAlternate(ctx, sug)
	case ActionReschedule:
		return r.applyReschedule(ctx, sug)
	case ActionCancel:
		return r.applyCancel(ctx, sug, opts)
	case ActionSplit, ActionSubcontract, ActionAddShift:
		// 需要采购/人事等外部流程，只记录意图
		r.logger.Info("产能调节建议待线下执行",
			zap.String("action", sug.Action),
			zap.String("work_center_id", sug.WorkCenterID),
			zap.Float64("resolved_hours", sug.ResolvedHours))
		return &ApplyResult{Applied: false, Message: fmt.Sprintf("%s 需要线下流程，已记录意图", sug.Action)}, nil
	default:
		return nil, fmt.Errorf("未知的建议类型: %s", sug.Action)
	}
}

// applyOvertime 从目标日期起逐工作日登记加班，单日上限4小时
func (r *CapacityResolver) applyOvertime(ctx context.Context, sug *ResolutionSuggestion, opts ApplyOptions) (*ApplyResult, error) {
	wc, err := r.workCenters.Get(ctx, sug.WorkCenterID)
	if err != nil {
		return nil, fmt.Errorf("work center not found: %w", err)
	}

	start := time.Now()
	if sug.TargetDate != nil {
		start = *sug.TargetDate
	}
	remaining := sug.ResolvedHours
	day := truncateDay(start)
	for i := 0; remaining > 0 && i < maxOvertimeScanDays; i++ {
		if wc.WorksOn(day.Weekday()) {
			hours := remaining
			if hours > maxOvertimeHoursPerDay {
				hours = maxOvertimeHoursPerDay
			}
			if _, err := r.workCenters.AddOvertime(ctx, sug.WorkCenterID, day, hours, "产能超载调节", opts.AppliedBy); err != nil {
				return nil, err
			}
			remaining -= hours
		}
		day = day.AddDate(0, 0, 1)
	}
	if remaining > 0 {
		return nil, fmt.Errorf("工作中心 %s 在 %d 天内没有足够的工作日登记加班", sug.WorkCenterID, maxOvertimeScanDays)
	}
	return &ApplyResult{Applied: true, Message: fmt.Sprintf("已登记 %.1f 小时加班", sug.ResolvedHours)}, nil
}

// applyAlternate 将可改派的工单工序转移到替代工作中心，直到覆盖建议工时
func (r *CapacityResolver) applyAlternate(ctx context.Context, sug *ResolutionSuggestion) (*ApplyResult, error) {
	if sug.TargetWorkCenterID == "" {
		return &ApplyResult{Applied: false, Message: "未指定替代工作中心"}, nil
	}

	if sug.WorkOrderID != "" {
		moved, err := r.workOrders.ReassignWorkCenter(ctx, sug.WorkOrderID, sug.WorkCenterID, sug.TargetWorkCenterID)
		if err != nil {
			return nil, err
		}
		return &ApplyResult{Applied: moved > 0, Message: fmt.Sprintf("转移 %d 道工序到替代工作中心", moved)}, nil
	}

	candidates, err := r.movableWorkOrders(ctx, sug.WorkCenterID)
	if err != nil {
		return nil, err
	}
	var movedHours float64
	movedOps := 0
	for i := range candidates {
		if movedHours >= sug.ResolvedHours {
			break
		}
		wo := &candidates[i]
		if !wo.CanModify() {
			continue
		}
		for j := range wo.Lines {
			line := &wo.Lines[j]
			if line.LineType == entity.WOLineTypeOperation && line.WorkCenterID == sug.WorkCenterID && !line.Completed {
				movedHours += line.PlannedSetupHours + line.PlannedRunHours
			}
		}
		moved, err := r.workOrders.ReassignWorkCenter(ctx, wo.ID, sug.WorkCenterID, sug.TargetWorkCenterID)
		if err != nil {
			return nil, err
		}
		movedOps += moved
	}
	if movedOps == 0 {
		return &ApplyResult{Applied: false, Message: "没有可转移的工序"}, nil
	}
	return &ApplyResult{Applied: true, Message: fmt.Sprintf("转移 %d 道工序，约 %.1f 小时", movedOps, movedHours)}, nil
}

// applyReschedule 将工单顺延到目标日期
func (r *CapacityResolver) applyReschedule(ctx context.Context, sug *ResolutionSuggestion) (*ApplyResult, error) {
	if sug.TargetDate == nil {
		return &ApplyResult{Applied: false, Message: "未指定顺延目标日期"}, nil
	}

	if sug.WorkOrderID != "" {
		if _, err := r.workOrders.Reschedule(ctx, sug.WorkOrderID, sug.TargetDate, nil); err != nil {
			return nil, err
		}
		return &ApplyResult{Applied: true, Message: fmt.Sprintf("工单已顺延 %d 天", sug.DaysDelayed)}, nil
	}

	candidates, err := r.movableWorkOrders(ctx, sug.WorkCenterID)
	if err != nil {
		return nil, err
	}
	var movedHours float64
	moved := 0
	for i := range candidates {
		if movedHours >= sug.ResolvedHours {
			break
		}
		wo := &candidates[i]
		if !wo.CanReschedule() || wo.PlannedStart == nil || !wo.PlannedStart.Before(*sug.TargetDate) {
			continue
		}
		var hours float64
		for j := range wo.Lines {
			line := &wo.Lines[j]
			if line.LineType == entity.WOLineTypeOperation && line.WorkCenterID == sug.WorkCenterID && !line.Completed {
				hours += line.PlannedSetupHours + line.PlannedRunHours
			}
		}
		if hours <= 0 {
			continue
		}
		if _, err := r.workOrders.Reschedule(ctx, wo.ID, sug.TargetDate, nil); err != nil {
			return nil, err
		}
		movedHours += hours
		moved++
	}
	if moved == 0 {
		return &ApplyResult{Applied: false, Message: "没有可顺延的工单"}, nil
	}
	return &ApplyResult{Applied: true, Message: fmt.Sprintf("顺延 %d 张工单，约 %.1f 小时", moved, movedHours)}, nil
}

// applyCancel 取消建议指定的工单
func (r *CapacityResolver) applyCancel(ctx context.Context, sug *ResolutionSuggestion, opts ApplyOptions) (*ApplyResult, error) {
	if sug.WorkOrderID == "" {
		return &ApplyResult{Applied: false, Message: "未指定要取消的工单"}, nil
	}
	if _, err := r.workOrders.Cancel(ctx, sug.WorkOrderID, "产能超载调节取消"); err != nil {
		return nil, err
	}
	r.logger.Info("工单已取消",
		zap.String("work_order_id", sug.WorkOrderID),
		zap.String("applied_by", opts.AppliedBy))
	return &ApplyResult{Applied: true, Message: "工单已取消"}, nil
}

// movableWorkOrders 目标工作中心上未来30天内的在排工单
func (r *CapacityResolver) movableWorkOrders(ctx context.Context, workCenterID string) ([]entity.WorkOrder, error) {
	now := truncateDay(time.Now())
	return r.workOrders.store.FindByWorkCenterAndDateRange(ctx, workCenterID, now, now.AddDate(0, 0, maxRescheduleDays), firmLoadStatuses)
}

// AutoResolve 按优先级执行无需审批且可自动执行的建议，
// 化解工时覆盖超载量即停止，只返回实际执行成功的建议
func (r *CapacityResolver) AutoResolve(ctx context.Context, workCenterID string, horizon PlanningHorizon, appliedBy string) ([]ResolutionSuggestion, error) {
	profile, err := r.capacity.CalculateLoad(ctx, workCenterID, horizon)
	if err != nil {
		return nil, err
	}
	if !profile.IsOverloaded() {
		return nil, nil
	}
	suggestions, err := r.capacity.SuggestResolutions(ctx, workCenterID, horizon)
	if err != nil {
		return nil, err
	}

	remaining := profile.ExcessLoad()
	var applied []ResolutionSuggestion
	for i := range suggestions {
		if remaining <= 0 {
			break
		}
		sug := suggestions[i]
		if sug.RequiresApproval || !sug.CanAutoApply {
			continue
		}
		result, err := r.ApplySuggestion(ctx, &sug, ApplyOptions{AppliedBy: appliedBy})
		if err != nil {
			r.logger.Warn("执行产能调节建议失败",
				zap.String("action", sug.Action),
				zap.String("work_center_id", workCenterID),
				zap.Error(err))
			continue
		}
		if !result.Applied {
			continue
		}
		applied = append(applied, sug)
		remaining -= sug.ResolvedHours
	}
	return applied, nil
}

// ValidateSuggestion 校验建议的前置条件，返回全部违规项而不报错
func (r *CapacityResolver) ValidateSuggestion(ctx context.Context, sug *ResolutionSuggestion, overtimeBudget float64) []string {
	var violations []string

	if sug.ResolvedHours <= 0 {
		violations = append(violations, "化解工时必须大于0")
	}

	switch sug.Action {
	case ActionReschedule:
		if sug.TargetDate == nil {
			violations = append(violations, "顺延建议缺少目标日期")
		}
		if sug.DaysDelayed > maxRescheduleDays {
			violations = append(violations, fmt.Sprintf("顺延天数 %d 超过上限 %d 天", sug.DaysDelayed, maxRescheduleDays))
		}
	case ActionOvertime:
		if sug.ResolvedHours > maxOvertimeHoursPerSuggestion {
			violations = append(violations, fmt.Sprintf("加班工时 %.1f 超过单次上限 %d 小时", sug.ResolvedHours, maxOvertimeHoursPerSuggestion))
		}
		if overtimeBudget > 0 && sug.Cost > overtimeBudget {
			violations = append(violations, fmt.Sprintf("加班成本 %.2f 超出预算 %.2f", sug.Cost, overtimeBudget))
		}
	case ActionAlternateWorkCenter:
		if sug.TargetWorkCenterID == "" {
			violations = append(violations, "替代建议缺少目标工作中心")
		} else if wc, err := r.workCenters.Get(ctx, sug.TargetWorkCenterID); err != nil {
			violations = append(violations, fmt.Sprintf("替代工作中心不存在: %v", err))
		} else if wc.Status != entity.WorkCenterStatusActive {
			violations = append(violations, "替代工作中心未启用")
		}
	case ActionCancel:
		if sug.WorkOrderID == "" {
			violations = append(violations, "取消建议缺少工单")
		} else if wo, err := r.workOrders.Get(ctx, sug.WorkOrderID); err != nil {
			violations = append(violations, fmt.Sprintf("工单不存在: %v", err))
		} else if !wo.CanCancel() {
			violations = append(violations, fmt.Sprintf("工单状态 %s 不允许取消", wo.Status))
		}
	}
	return violations
}
