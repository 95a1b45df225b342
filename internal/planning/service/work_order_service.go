package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkOrderStore 工单持久化契约
type WorkOrderStore interface {
	Create(ctx context.Context, wo *entity.WorkOrder) error
	Update(ctx context.Context, wo *entity.WorkOrder) error
	FindByID(ctx context.Context, id string) (*entity.WorkOrder, error)
	FindByCode(ctx context.Context, code string) (*entity.WorkOrder, error)
	FindByStatus(ctx context.Context, statuses []string) ([]entity.WorkOrder, error)
	FindByWorkCenterAndDateRange(ctx context.Context, workCenterID string, from, to time.Time, statuses []string) ([]entity.WorkOrder, error)
	CreateLines(ctx context.Context, lines []entity.WorkOrderLine) error
	UpdateLine(ctx context.Context, line *entity.WorkOrderLine) error
	DeleteLines(ctx context.Context, workOrderID string) error
	FindLineByID(ctx context.Context, id string) (*entity.WorkOrderLine, error)
}

type WorkOrderService struct {
	store    WorkOrderStore
	boms     *BOMService
	routings *RoutingService
	logger   *zap.Logger
}

func NewWorkOrderService(store WorkOrderStore, boms *BOMService, routings *RoutingService, logger *zap.Logger) *WorkOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkOrderService{store: store, boms: boms, routings: routings, logger: logger}
}

// CreateWorkOrderInput 创建工单请求
type CreateWorkOrderInput struct {
	ProductID    string     `json:"product_id" binding:"required"`
	Quantity     float64    `json:"quantity" binding:"required,gt=0"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	SalesOrderID *string    `json:"sales_order_id"`
	SourceType   string     `json:"source_type"`
	SourceID     string     `json:"source_id"`
	Notes        string     `json:"notes"`
}

// Create 创建工单：自动按当日生效的BOM生成物料行、按生效工艺路线生成工序行
func (s *WorkOrderService) Create(ctx context.Context, input *CreateWorkOrderInput, createdBy string) (*entity.WorkOrder, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("工单数量必须大于0")
	}
	now := time.Now()
	sourceType := input.SourceType
	if sourceType == "" {
		sourceType = "MANUAL"
	}
	wo := &entity.WorkOrder{
		ID:           uuid.New().String()[:32],
		Code:         fmt.Sprintf("WO-%s-%s", now.Format("20060102"), uuid.New().String()[:6]),
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		Status:       entity.WOStatusPlanned,
		PlannedStart: input.PlannedStart,
		PlannedEnd:   input.PlannedEnd,
		SalesOrderID: input.SalesOrderID,
		SourceType:   sourceType,
		SourceID:     input.SourceID,
		Notes:        input.Notes,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, wo); err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}

	lines, err := s.buildLines(ctx, wo.ID, input.ProductID, input.Quantity)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := s.store.CreateLines(ctx, lines); err != nil {
			return nil, fmt.Errorf("create work order lines: %w", err)
		}
	}
	return s.store.FindByID(ctx, wo.ID)
}

// CreateFromPlannedOrder MRP计划订单下达为工单
func (s *WorkOrderService) CreateFromPlannedOrder(ctx context.Context, order *entity.PlannedOrder, createdBy string) (*entity.WorkOrder, error) {
	start := order.StartDate
	end := order.DueDate
	return s.Create(ctx, &CreateWorkOrderInput{
		ProductID:    order.ProductID,
		Quantity:     order.Quantity,
		PlannedStart: &start,
		PlannedEnd:   &end,
		SourceType:   "MRP",
		SourceID:     order.ID,
	}, createdBy)
}

// buildLines 按当日生效的BOM/工艺路线生成工单行
func (s *WorkOrderService) buildLines(ctx context.Context, workOrderID, productID string, qty float64) ([]entity.WorkOrderLine, error) {
	now := time.Now()
	var lines []entity.WorkOrderLine
	lineNo := 1

	bom, err := s.boms.GetEffective(ctx, productID, now)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find effective bom: %w", err)
	}
	if bom != nil {
		for i := range bom.Lines {
			line := &bom.Lines[i]
			if !line.EffectiveOn(now) {
				continue
			}
			lines = append(lines, entity.WorkOrderLine{
				ID:          uuid.New().String()[:32],
				WorkOrderID: workOrderID,
				LineNumber:  lineNo,
				LineType:    entity.WOLineTypeMaterial,
				ComponentID: line.ComponentID,
				PlannedQty:  line.QuantityWithScrap() * qty,
				Unit:        line.Unit,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			lineNo++
		}
	}

	routing, err := s.routings.GetEffective(ctx, productID, now)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find effective routing: %w", err)
	}
	if routing != nil {
		for _, op := range sortedOperations(routing, now) {
			lines = append(lines, entity.WorkOrderLine{
				ID:                uuid.New().String()[:32],
				WorkOrderID:       workOrderID,
				LineNumber:        lineNo,
				LineType:          entity.WOLineTypeOperation,
				OperationNo:       op.OperationNo,
				WorkCenterID:      op.WorkCenterID,
				PlannedSetupHours: op.SetupMinutes / 60,
				PlannedRunHours:   op.RunMinutesPerUnit * qty / 60,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
			lineNo++
		}
	}
	return lines, nil
}

// Get 获取工单
func (s *WorkOrderService) Get(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.store.FindByID(ctx, id)
}

// GetByCode 按编号获取工单
func (s *WorkOrderService) GetByCode(ctx context.Context, code string) (*entity.WorkOrder, error) {
	return s.store.FindByCode(ctx, code)
}

// ListByStatus 按状态查询工单
func (s *WorkOrderService) ListByStatus(ctx context.Context, statuses []string) ([]entity.WorkOrder, error) {
	return s.store.FindByStatus(ctx, statuses)
}

// transition 统一的状态流转入口，非法流转返回StatusTransitionError
func (s *WorkOrderService) transition(ctx context.Context, wo *entity.WorkOrder, target string) error {
	if !wo.CanTransition(target) {
		return &StatusTransitionError{Entity: "WorkOrder", ID: wo.ID, Current: wo.Status, Attempted: target}
	}
	wo.Status = target
	wo.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, wo); err != nil {
		return fmt.Errorf("update work order: %w", err)
	}
	return nil
}

// Release 下达工单（PLANNED → RELEASED）
func (s *WorkOrderService) Release(ctx context.Context, id string) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if err := s.transition(ctx, wo, entity.WOStatusReleased); err != nil {
		return nil, err
	}
	return wo, nil
}

// Start 开工（RELEASED → IN_PROGRESS）
func (s *WorkOrderService) Start(ctx context.Context, id string) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if wo.Status != entity.WOStatusReleased {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: entity.WOStatusInProgress}
	}
	now := time.Now()
	wo.ActualStart = &now
	if err := s.transition(ctx, wo, entity.WOStatusInProgress); err != nil {
		return nil, err
	}
	return wo, nil
}

// Hold 暂停工单，记录前一状态用于恢复
func (s *WorkOrderService) Hold(ctx context.Context, id, reason string) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	previous := wo.Status
	if err := s.transition(ctx, wo, entity.WOStatusOnHold); err != nil {
		return nil, err
	}
	wo.PreviousStatus = previous
	wo.HoldReason = reason
	if err := s.store.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("update work order: %w", err)
	}
	return wo, nil
}

// Resume 恢复暂停的工单到暂停前的状态
func (s *WorkOrderService) Resume(ctx context.Context, id string) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if wo.Status != entity.WOStatusOnHold {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: wo.PreviousStatus}
	}
	target := wo.PreviousStatus
	if target == "" {
		target = entity.WOStatusReleased
	}
	if err := s.transition(ctx, wo, target); err != nil {
		return nil, err
	}
	wo.PreviousStatus = ""
	wo.HoldReason = ""
	if err := s.store.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("update work order: %w", err)
	}
	return wo, nil
}

// Cancel 取消工单（仅非终态）
func (s *WorkOrderService) Cancel(ctx context.Context, id, reason string) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if !wo.CanCancel() {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: entity.WOStatusCancelled}
	}
	if reason != "" {
		wo.Notes = reason
	}
	if err := s.transition(ctx, wo, entity.WOStatusCancelled); err != nil {
		return nil, err
	}
	return wo, nil
}

// Close 关闭工单（COMPLETED或IN_PROGRESS）
func (s *WorkOrderService) Close(ctx context.Context, id string) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if wo.Status != entity.WOStatusCompleted && wo.Status != entity.WOStatusInProgress {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: entity.WOStatusClosed}
	}
	if wo.ActualEnd == nil {
		now := time.Now()
		wo.ActualEnd = &now
	}
	if err := s.transition(ctx, wo, entity.WOStatusClosed); err != nil {
		return nil, err
	}
	return wo, nil
}

// ReportCompletion 报工：累计完工/报废数量，完工数达到下达数自动转COMPLETED
func (s *WorkOrderService) ReportCompletion(ctx context.Context, id string, completedQty, scrapQty float64) (*entity.WorkOrder, error) {
	if completedQty < 0 || scrapQty < 0 {
		return nil, fmt.Errorf("报工数量不能为负")
	}
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if wo.Status != entity.WOStatusReleased && wo.Status != entity.WOStatusInProgress {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: entity.WOStatusInProgress}
	}

	now := time.Now()
	if wo.Status == entity.WOStatusReleased {
		// 首次报工自动开工
		wo.Status = entity.WOStatusInProgress
		wo.ActualStart = &now
	}
	wo.CompletedQty += completedQty
	wo.ScrapQty += scrapQty
	if wo.CompletedQty >= wo.Quantity {
		wo.Status = entity.WOStatusCompleted
		wo.ActualEnd = &now
	}
	wo.UpdatedAt = now
	if err := s.store.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("update work order: %w", err)
	}
	return wo, nil
}

// ReportOperation 工序报工，首次报工自动将RELEASED提升到IN_PROGRESS
func (s *WorkOrderService) ReportOperation(ctx context.Context, id, lineID string, setupHours, runHours float64, completed bool) (*entity.WorkOrderLine, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if wo.Status != entity.WOStatusReleased && wo.Status != entity.WOStatusInProgress {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: entity.WOStatusInProgress}
	}
	line, err := s.store.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("work order line not found: %w", err)
	}
	if line.WorkOrderID != id || line.LineType != entity.WOLineTypeOperation {
		return nil, fmt.Errorf("工序行不属于该工单")
	}

	now := time.Now()
	if wo.Status == entity.WOStatusReleased {
		wo.Status = entity.WOStatusInProgress
		wo.ActualStart = &now
		wo.UpdatedAt = now
		if err := s.store.Update(ctx, wo); err != nil {
			return nil, fmt.Errorf("update work order: %w", err)
		}
	}

	line.ActualSetupHours += setupHours
	line.ActualRunHours += runHours
	if completed {
		line.Completed = true
	}
	line.UpdatedAt = now
	if err := s.store.UpdateLine(ctx, line); err != nil {
		return nil, fmt.Errorf("update work order line: %w", err)
	}
	return line, nil
}

// IssueMaterial 领料，仅RELEASED/IN_PROGRESS允许
func (s *WorkOrderService) IssueMaterial(ctx context.Context, id, lineID string, qty float64) (*entity.WorkOrderLine, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("领料数量必须大于0")
	}
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if !wo.CanIssueMaterial() {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: "ISSUE_MATERIAL"}
	}
	line, err := s.store.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("work order line not found: %w", err)
	}
	if line.WorkOrderID != id || line.LineType != entity.WOLineTypeMaterial {
		return nil, fmt.Errorf("物料行不属于该工单")
	}
	line.IssuedQty += qty
	line.UpdatedAt = time.Now()
	if err := s.store.UpdateLine(ctx, line); err != nil {
		return nil, fmt.Errorf("update work order line: %w", err)
	}
	return line, nil
}

// ChangeQuantity 调整工单数量：不能低于已完工数量，调整后按BOM/工艺路线重建全部行
func (s *WorkOrderService) ChangeQuantity(ctx context.Context, id string, newQty float64) (*entity.WorkOrder, error) {
	if newQty <= 0 {
		return nil, fmt.Errorf("工单数量必须大于0")
	}
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if !wo.CanModify() {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: "CHANGE_QUANTITY"}
	}
	if newQty < wo.CompletedQty {
		return nil, fmt.Errorf("工单数量不能低于已完工数量 %.2f", wo.CompletedQty)
	}

	wo.Quantity = newQty
	wo.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("update work order: %w", err)
	}

	if err := s.store.DeleteLines(ctx, id); err != nil {
		return nil, fmt.Errorf("delete work order lines: %w", err)
	}
	lines, err := s.buildLines(ctx, id, wo.ProductID, newQty)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := s.store.CreateLines(ctx, lines); err != nil {
			return nil, fmt.Errorf("create work order lines: %w", err)
		}
	}
	return s.store.FindByID(ctx, id)
}

// Reschedule 改期（PLANNED/RELEASED）
func (s *WorkOrderService) Reschedule(ctx context.Context, id string, newStart, newEnd *time.Time) (*entity.WorkOrder, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work order not found: %w", err)
	}
	if !wo.CanReschedule() {
		return nil, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: "RESCHEDULE"}
	}
	if newStart != nil {
		wo.PlannedStart = newStart
	}
	if newEnd != nil {
		wo.PlannedEnd = newEnd
	}
	wo.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("update work order: %w", err)
	}
	return wo, nil
}

// ReassignWorkCenter 将工单中指定工作中心的工序行转移到另一工作中心
func (s *WorkOrderService) ReassignWorkCenter(ctx context.Context, id, fromWorkCenterID, toWorkCenterID string) (int, error) {
	wo, err := s.store.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("work order not found: %w", err)
	}
	if !wo.CanModify() {
		return 0, &StatusTransitionError{Entity: "WorkOrder", ID: id, Current: wo.Status, Attempted: "REASSIGN_WORK_CENTER"}
	}

	moved := 0
	now := time.Now()
	for i := range wo.Lines {
		line := &wo.Lines[i]
		if line.LineType != entity.WOLineTypeOperation || line.WorkCenterID != fromWorkCenterID || line.Completed {
			continue
		}
		line.WorkCenterID = toWorkCenterID
		line.UpdatedAt = now
		if err := s.store.UpdateLine(ctx, line); err != nil {
			return moved, fmt.Errorf("update work order line: %w", err)
		}
		moved++
	}
	return moved, nil
}
