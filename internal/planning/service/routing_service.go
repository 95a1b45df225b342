package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/google/uuid"
)

// RoutingStore 工艺路线持久化契约
type RoutingStore interface {
	Create(ctx context.Context, routing *entity.Routing) error
	Update(ctx context.Context, routing *entity.Routing) error
	FindByID(ctx context.Context, id string) (*entity.Routing, error)
	FindVersions(ctx context.Context, productID string) ([]entity.Routing, error)
	FindEffective(ctx context.Context, productID string, asOf time.Time) (*entity.Routing, error)
	CreateOperation(ctx context.Context, op *entity.RoutingOperation) error
	UpdateOperation(ctx context.Context, op *entity.RoutingOperation) error
	DeleteOperation(ctx context.Context, id string) error
	FindOperationByID(ctx context.Context, id string) (*entity.RoutingOperation, error)
}

// WorkCenterProvider 工艺路线成本核算所需的工作中心查询
type WorkCenterProvider interface {
	FindByID(ctx context.Context, id string) (*entity.WorkCenter, error)
}

type RoutingService struct {
	store       RoutingStore
	workCenters WorkCenterProvider
}

func NewRoutingService(store RoutingStore, workCenters WorkCenterProvider) *RoutingService {
	return &RoutingService{store: store, workCenters: workCenters}
}

// CreateRoutingInput 创建工艺路线请求
type CreateRoutingInput struct {
	ProductID     string     `json:"product_id" binding:"required"`
	Version       string     `json:"version"`
	EffectiveFrom *time.Time `json:"effective_from"`
	Notes         string     `json:"notes"`
}

// OperationInput 工序请求
type OperationInput struct {
	OperationNo       int     `json:"operation_no" binding:"required"`
	Name              string  `json:"name"`
	WorkCenterID      string  `json:"work_center_id" binding:"required"`
	SetupMinutes      float64 `json:"setup_minutes"`
	RunMinutesPerUnit float64 `json:"run_minutes_per_unit"`
	OverlapFactor     float64 `json:"overlap_factor"`
	Subcontract       bool    `json:"subcontract"`
	SubcontractCost   float64 `json:"subcontract_cost"`
}

// Create 创建工艺路线（草稿状态）
func (s *RoutingService) Create(ctx context.Context, input *CreateRoutingInput, createdBy string) (*entity.Routing, error) {
	version := input.Version
	if version == "" {
		version = "v1.0"
	}
	if err := s.ensureVersionUnique(ctx, input.ProductID, version); err != nil {
		return nil, err
	}

	now := time.Now()
	effectiveFrom := now
	if input.EffectiveFrom != nil {
		effectiveFrom = *input.EffectiveFrom
	}
	routing := &entity.Routing{
		ID:            uuid.New().String()[:32],
		ProductID:     input.ProductID,
		Version:       version,
		Status:        entity.RoutingStatusDraft,
		EffectiveFrom: effectiveFrom,
		Notes:         input.Notes,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, routing); err != nil {
		return nil, fmt.Errorf("create routing: %w", err)
	}
	return routing, nil
}

// Get 获取工艺路线详情（含工序）
func (s *RoutingService) Get(ctx context.Context, id string) (*entity.Routing, error) {
	return s.store.FindByID(ctx, id)
}

// ListVersions 获取产品的所有工艺路线版本
func (s *RoutingService) ListVersions(ctx context.Context, productID string) ([]entity.Routing, error) {
	return s.store.FindVersions(ctx, productID)
}

// GetEffective 获取产品在指定日期生效的工艺路线
func (s *RoutingService) GetEffective(ctx context.Context, productID string, asOf time.Time) (*entity.Routing, error) {
	return s.store.FindEffective(ctx, productID, asOf)
}

// NewVersion 基于现有工艺路线克隆新版本
func (s *RoutingService) NewVersion(ctx context.Context, routingID, version, createdBy string) (*entity.Routing, error) {
	src, err := s.store.FindByID(ctx, routingID)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if err := s.ensureVersionUnique(ctx, src.ProductID, version); err != nil {
		return nil, err
	}

	now := time.Now()
	clone := &entity.Routing{
		ID:            uuid.New().String()[:32],
		ProductID:     src.ProductID,
		Version:       version,
		Status:        entity.RoutingStatusDraft,
		EffectiveFrom: now,
		PredecessorID: &src.ID,
		Notes:         src.Notes,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("create routing version: %w", err)
	}
	for _, op := range src.Operations {
		newOp := op
		newOp.ID = uuid.New().String()[:32]
		newOp.RoutingID = clone.ID
		newOp.CreatedAt = now
		newOp.UpdatedAt = now
		if err := s.store.CreateOperation(ctx, &newOp); err != nil {
			return nil, fmt.Errorf("copy routing operation: %w", err)
		}
	}
	return s.store.FindByID(ctx, clone.ID)
}

// Release 发布工艺路线：无工序拒绝发布，自动截止前序生效版本
func (s *RoutingService) Release(ctx context.Context, id, userID string) (*entity.Routing, error) {
	routing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return nil, &InvalidVersionError{ProductID: routing.ProductID, Version: routing.Version, Reason: "只有草稿状态的工艺路线才能发布"}
	}
	if len(routing.Operations) == 0 {
		return nil, fmt.Errorf("工艺路线没有工序，无法发布")
	}

	now := time.Now()
	if routing.EffectiveFrom.IsZero() {
		routing.EffectiveFrom = now
	}
	if prev, findErr := s.store.FindEffective(ctx, routing.ProductID, routing.EffectiveFrom); findErr == nil && prev.ID != routing.ID {
		effectiveTo := routing.EffectiveFrom
		prev.EffectiveTo = &effectiveTo
		prev.UpdatedAt = now
		if err := s.store.Update(ctx, prev); err != nil {
			return nil, fmt.Errorf("close predecessor routing: %w", err)
		}
	}

	routing.Status = entity.RoutingStatusReleased
	routing.ReleasedBy = userID
	routing.ReleasedAt = &now
	routing.UpdatedAt = now
	if err := s.store.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("release routing: %w", err)
	}
	return routing, nil
}

// Obsolete 作废工艺路线
func (s *RoutingService) Obsolete(ctx context.Context, id string) (*entity.Routing, error) {
	routing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusReleased {
		return nil, &InvalidVersionError{ProductID: routing.ProductID, Version: routing.Version, Reason: "只有已发布的工艺路线才能作废"}
	}
	now := time.Now()
	routing.Status = entity.RoutingStatusObsolete
	if routing.EffectiveTo == nil {
		routing.EffectiveTo = &now
	}
	routing.UpdatedAt = now
	if err := s.store.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("obsolete routing: %w", err)
	}
	return routing, nil
}

// AddOperation 添加工序（仅草稿，工序号唯一，重叠比例0~1）
func (s *RoutingService) AddOperation(ctx context.Context, routingID string, input *OperationInput) (*entity.RoutingOperation, error) {
	routing, err := s.store.FindByID(ctx, routingID)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return nil, &InvalidVersionError{ProductID: routing.ProductID, Version: routing.Version, Reason: "只有草稿状态的工艺路线才能添加工序"}
	}
	for i := range routing.Operations {
		if routing.Operations[i].OperationNo == input.OperationNo {
			return nil, fmt.Errorf("工序号 %d 已存在", input.OperationNo)
		}
	}
	if input.OverlapFactor < 0 || input.OverlapFactor >= 1 {
		return nil, fmt.Errorf("重叠比例必须在 [0, 1) 之间")
	}
	if _, err := s.workCenters.FindByID(ctx, input.WorkCenterID); err != nil {
		return nil, fmt.Errorf("工作中心不存在: %w", err)
	}

	now := time.Now()
	op := &entity.RoutingOperation{
		ID:                uuid.New().String()[:32],
		RoutingID:         routingID,
		OperationNo:       input.OperationNo,
		Name:              input.Name,
		WorkCenterID:      input.WorkCenterID,
		SetupMinutes:      input.SetupMinutes,
		RunMinutesPerUnit: input.RunMinutesPerUnit,
		OverlapFactor:     input.OverlapFactor,
		Subcontract:       input.Subcontract,
		SubcontractCost:   input.SubcontractCost,
		EffectiveFrom:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("create routing operation: %w", err)
	}
	return op, nil
}

// UpdateOperation 更新工序（仅草稿）
func (s *RoutingService) UpdateOperation(ctx context.Context, routingID, opID string, input *OperationInput) (*entity.RoutingOperation, error) {
	routing, err := s.store.FindByID(ctx, routingID)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return nil, &InvalidVersionError{ProductID: routing.ProductID, Version: routing.Version, Reason: "只有草稿状态的工艺路线才能修改工序"}
	}
	op, err := s.store.FindOperationByID(ctx, opID)
	if err != nil {
		return nil, fmt.Errorf("operation not found: %w", err)
	}
	if op.RoutingID != routingID {
		return nil, fmt.Errorf("工序不属于该工艺路线")
	}

	if input.Name != "" {
		op.Name = input.Name
	}
	if input.WorkCenterID != "" && input.WorkCenterID != op.WorkCenterID {
		if _, err := s.workCenters.FindByID(ctx, input.WorkCenterID); err != nil {
			return nil, fmt.Errorf("工作中心不存在: %w", err)
		}
		op.WorkCenterID = input.WorkCenterID
	}
	op.SetupMinutes = input.SetupMinutes
	op.RunMinutesPerUnit = input.RunMinutesPerUnit
	op.OverlapFactor = input.OverlapFactor
	op.Subcontract = input.Subcontract
	op.SubcontractCost = input.SubcontractCost
	op.UpdatedAt = time.Now()

	if err := s.store.UpdateOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("update routing operation: %w", err)
	}
	return op, nil
}

// RemoveOperation 删除工序（仅草稿）
func (s *RoutingService) RemoveOperation(ctx context.Context, routingID, opID string) error {
	routing, err := s.store.FindByID(ctx, routingID)
	if err != nil {
		return fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return &InvalidVersionError{ProductID: routing.ProductID, Version: routing.Version, Reason: "只有草稿状态的工艺路线才能删除工序"}
	}
	op, err := s.store.FindOperationByID(ctx, opID)
	if err != nil {
		return fmt.Errorf("operation not found: %w", err)
	}
	if op.RoutingID != routingID {
		return fmt.Errorf("工序不属于该工艺路线")
	}
	if err := s.store.DeleteOperation(ctx, opID); err != nil {
		return fmt.Errorf("delete routing operation: %w", err)
	}
	return nil
}

// LeadTimeHours 计算数量Q的制造提前期（小时）
// 工序按工序号排序，后道工序的工时按前道的重叠比例扣减
func (s *RoutingService) LeadTimeHours(ctx context.Context, routingID string, qty float64) (float64, error) {
	routing, err := s.store.FindByID(ctx, routingID)
	if err != nil {
		return 0, fmt.Errorf("routing not found: %w", err)
	}
	ops := sortedOperations(routing, time.Now())

	var totalMinutes float64
	var prevOverlap float64
	for i := range ops {
		minutes := ops[i].TotalMinutes(qty)
		if i > 0 && prevOverlap > 0 && prevOverlap < 1 {
			minutes *= 1 - prevOverlap
		}
		totalMinutes += minutes
		prevOverlap = ops[i].OverlapFactor
	}
	return totalMinutes / 60, nil
}

// RoutingCost 工艺路线成本核算结果
type RoutingCost struct {
	LaborCost       float64 `json:"labor_cost"`
	MachineCost     float64 `json:"machine_cost"`
	OverheadCost    float64 `json:"overhead_cost"`
	SubcontractCost float64 `json:"subcontract_cost"`
	TotalCost       float64 `json:"total_cost"`
	// RatesMissing 非委外工序所在工作中心费率全为0时置位，提示成本不完整
	RatesMissing bool `json:"rates_missing"`
}

// CalculateCost 计算数量Q的工艺成本
// 委外工序按单件委外费用计，其余按工作中心小时费率计
func (s *RoutingService) CalculateCost(ctx context.Context, routingID string, qty float64) (*RoutingCost, error) {
	routing, err := s.store.FindByID(ctx, routingID)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	ops := sortedOperations(routing, time.Now())

	cost := &RoutingCost{}
	for i := range ops {
		op := ops[i]
		if op.Subcontract {
			cost.SubcontractCost += op.SubcontractCost * qty
			continue
		}
		wc, err := s.workCenters.FindByID(ctx, op.WorkCenterID)
		if err != nil {
			return nil, fmt.Errorf("find work center %s: %w", op.WorkCenterID, err)
		}
		hours := op.TotalMinutes(qty) / 60
		if wc.LaborRatePerHour == 0 && wc.MachineRatePerHour == 0 && wc.OverheadRatePerHour == 0 {
			cost.RatesMissing = true
		}
		cost.LaborCost += hours * wc.LaborRatePerHour
		cost.MachineCost += hours * wc.MachineRatePerHour
		cost.OverheadCost += hours * wc.OverheadRatePerHour
	}
	cost.TotalCost = cost.LaborCost + cost.MachineCost + cost.OverheadCost + cost.SubcontractCost
	return cost, nil
}

// sortedOperations 过滤生效工序并按工序号排序
func sortedOperations(routing *entity.Routing, asOf time.Time) []entity.RoutingOperation {
	ops := make([]entity.RoutingOperation, 0, len(routing.Operations))
	for i := range routing.Operations {
		if routing.Operations[i].EffectiveOn(asOf) {
			ops = append(ops, routing.Operations[i])
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].OperationNo < ops[j].OperationNo })
	return ops
}

func (s *RoutingService) ensureVersionUnique(ctx context.Context, productID, version string) error {
	versions, err := s.store.FindVersions(ctx, productID)
	if err != nil {
		return fmt.Errorf("list routing versions: %w", err)
	}
	for i := range versions {
		if versions[i].Version == version {
			return &InvalidVersionError{ProductID: productID, Version: version, Reason: "版本号已存在"}
		}
	}
	return nil
}
