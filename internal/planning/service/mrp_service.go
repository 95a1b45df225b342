package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxMRPLevels 多级展开最大层级，到达后发警告并截断，不报错
const maxMRPLevels = 10

// mrpCacheTTL 最近一次MRP结果的缓存时长
const mrpCacheTTL = 24 * time.Hour

// ProductProvider 产品主数据查询（提前期、安全库存）
type ProductProvider interface {
	FindByID(ctx context.Context, id string) (*entity.Product, error)
}

// DemandProvider 独立需求查询
type DemandProvider interface {
	FindDueWithin(ctx context.Context, productID string, from, to time.Time) ([]entity.Demand, error)
}

// ReceiptProvider 计划入库查询
type ReceiptProvider interface {
	FindDueWithin(ctx context.Context, productID string, from, to time.Time) ([]entity.ScheduledReceipt, error)
}

// InventoryProvider 现有库存查询
type InventoryProvider interface {
	OnHand(ctx context.Context, productID string) (float64, error)
}

// MRPRunStore MRP运行记录持久化契约
type MRPRunStore interface {
	CreateRun(ctx context.Context, run *entity.MRPRun) error
	UpdateRun(ctx context.Context, run *entity.MRPRun) error
	FindRunByID(ctx context.Context, id string) (*entity.MRPRun, error)
	FindRuns(ctx context.Context, productID string, limit int) ([]entity.MRPRun, error)
	CreateRequirements(ctx context.Context, reqs []entity.MRPRequirement) error
	CreatePlannedOrders(ctx context.Context, orders []entity.PlannedOrder) error
	FindRequirements(ctx context.Context, runID string) ([]entity.MRPRequirement, error)
	FindPlannedOrders(ctx context.Context, runID string) ([]entity.PlannedOrder, error)
	UpdatePlannedOrder(ctx context.Context, order *entity.PlannedOrder) error
}

// WorkOrderCreator 将计划订单下达为工单，并提供在制工单查询（相关需求来源）
type WorkOrderCreator interface {
	CreateFromPlannedOrder(ctx context.Context, order *entity.PlannedOrder, createdBy string) (*entity.WorkOrder, error)
	ListByStatus(ctx context.Context, statuses []string) ([]entity.WorkOrder, error)
}

// openWorkOrderStatuses 产生相关需求的在制工单状态
var openWorkOrderStatuses = []string{entity.WOStatusPlanned, entity.WOStatusReleased, entity.WOStatusInProgress}

type MRPService struct {
	boms       *BOMService
	products   ProductProvider
	demands    DemandProvider
	receipts   ReceiptProvider
	inventory  InventoryProvider
	runs       MRPRunStore
	workOrders WorkOrderCreator
	cache      *redis.Client // 可为nil，缓存失败不影响计算
	logger     *zap.Logger
}

func NewMRPService(
	boms *BOMService,
	products ProductProvider,
	demands DemandProvider,
	receipts ReceiptProvider,
	inventory InventoryProvider,
	runs MRPRunStore,
	workOrders WorkOrderCreator,
	cache *redis.Client,
	logger *zap.Logger,
) *MRPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MRPService{
		boms:       boms,
		products:   products,
		demands:    demands,
		receipts:   receipts,
		inventory:  inventory,
		runs:       runs,
		workOrders: workOrders,
		cache:      cache,
		logger:     logger,
	}
}

// MRPInput MRP计算输入
type MRPInput struct {
	ProductID string          `json:"product_id" binding:"required"`
	Horizon   PlanningHorizon `json:"horizon"`
	LotSizing string          `json:"lot_sizing"`
	LotParams LotSizingParams `json:"lot_params"`
}

// MRPResultSet 一次MRP计算的完整输出，带计算时间与所用参数
// 计算过程中的异常被收进Errors，调用方永远能拿到已算出的部分结果
type MRPResultSet struct {
	ProductID     string                  `json:"product_id"`
	CalculatedAt  time.Time               `json:"calculated_at"`
	Input         MRPInput                `json:"input"`
	Requirements  []entity.MRPRequirement `json:"requirements"`
	PlannedOrders []entity.PlannedOrder   `json:"planned_orders"`
	Warnings      []string                `json:"warnings"`
	Errors        []string                `json:"errors"`
}

// demandEntry 净需求计算的输入条目（独立需求、工单相关需求或上级派生需求）
type demandEntry struct {
	date     time.Time
	qty      float64
	parentID string
}

// dependentDemand 在制工单物料行派生的相关需求
type dependentDemand struct {
	workOrderCode string
	parentProduct string
	date          time.Time
	qty           float64
}

// dependentDemands 收集在制工单里该产品的未领数量，需求日取工单计划开工日
func (s *MRPService) dependentDemands(ctx context.Context, productID string, from, to time.Time) ([]dependentDemand, error) {
	workOrders, err := s.workOrders.ListByStatus(ctx, openWorkOrderStatuses)
	if err != nil {
		return nil, fmt.Errorf("find open work orders: %w", err)
	}
	var out []dependentDemand
	for i := range workOrders {
		wo := &workOrders[i]
		if wo.PlannedStart == nil {
			continue
		}
		date := truncateDay(*wo.PlannedStart)
		if date.Before(from) || !date.Before(to) {
			continue
		}
		for j := range wo.Lines {
			line := &wo.Lines[j]
			if line.LineType != entity.WOLineTypeMaterial || line.ComponentID != productID {
				continue
			}
			open := line.PlannedQty - line.IssuedQty
			if open <= 0 {
				continue
			}
			out = append(out, dependentDemand{
				workOrderCode: wo.Code,
				parentProduct: wo.ProductID,
				date:          date,
				qty:           open,
			})
		}
	}
	return out, nil
}

// Calculate 运行MRP：毛需求合并（独立需求+在制工单相关需求）→ 净需求 → 批量化 → 多级展开
// 计算异常不向上传播，收进结果的Errors列表
func (s *MRPService) Calculate(ctx context.Context, input *MRPInput) (*MRPResultSet, error) {
	if input.ProductID == "" {
		return nil, fmt.Errorf("产品ID不能为空")
	}
	if !input.Horizon.Start.Before(input.Horizon.End) {
		return nil, fmt.Errorf("计划期起点必须早于终点")
	}

	result := &MRPResultSet{ProductID: input.ProductID, CalculatedAt: time.Now(), Input: *input}

	demands, err := s.demands.FindDueWithin(ctx, input.ProductID, input.Horizon.Start, input.Horizon.End)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("读取独立需求失败: %v", err))
		return result, nil
	}
	entries := make([]demandEntry, 0, len(demands))
	for i := range demands {
		entries = append(entries, demandEntry{date: truncateDay(demands[i].DueDate), qty: demands[i].Quantity})
	}

	dependents, err := s.dependentDemands(ctx, input.ProductID, input.Horizon.Start, input.Horizon.End)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("读取相关需求失败: %v", err))
	}
	for i := range dependents {
		entries = append(entries, demandEntry{date: dependents[i].date, qty: dependents[i].qty, parentID: dependents[i].parentProduct})
	}

	if len(entries) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("产品 %s 在计划期内没有需求", input.ProductID))
		return result, nil
	}

	s.netProductTree(ctx, input, input.ProductID, "", 0, entries, result)

	s.logger.Info("MRP计算完成",
		zap.String("product_id", input.ProductID),
		zap.Int("requirements", len(result.Requirements)),
		zap.Int("planned_orders", len(result.PlannedOrders)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// netProductTree 对单个产品净需求计算后深度优先展开下级物料
func (s *MRPService) netProductTree(ctx context.Context, input *MRPInput, productID, parentID string, level int, entries []demandEntry, result *MRPResultSet) {
	orders := s.netProduct(ctx, input, productID, parentID, level, entries, result)
	result.PlannedOrders = append(result.PlannedOrders, orders...)

	if level+1 > maxMRPLevels {
		for i := range orders {
			if orders[i].OrderType == entity.OrderTypeManufacturing {
				result.Warnings = append(result.Warnings, fmt.Sprintf("产品 %s 的BOM层级超过 %d，多级展开截断", productID, maxMRPLevels))
				return
			}
		}
		return
	}

	// 按组件聚合本产品所有生产型计划订单的派生需求，再逐组件递归
	derived := make(map[string][]demandEntry)
	var componentOrder []string
	for i := range orders {
		order := &orders[i]
		if order.OrderType != entity.OrderTypeManufacturing {
			continue
		}
		bom, err := s.boms.GetEffective(ctx, productID, order.StartDate)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				result.Errors = append(result.Errors, fmt.Sprintf("读取产品 %s 生效BOM失败: %v", productID, err))
			}
			continue
		}
		for j := range bom.Lines {
			line := &bom.Lines[j]
			if !line.EffectiveOn(order.StartDate) {
				continue
			}
			if _, seen := derived[line.ComponentID]; !seen {
				componentOrder = append(componentOrder, line.ComponentID)
			}
			derived[line.ComponentID] = append(derived[line.ComponentID], demandEntry{
				date:     order.StartDate,
				qty:      line.QuantityWithScrap() * order.Quantity,
				parentID: productID,
			})
		}
	}
	for _, componentID := range componentOrder {
		s.netProductTree(ctx, input, componentID, productID, level+1, derived[componentID], result)
	}
}

// netProduct 单产品净需求循环：逐需求日推进预计可用量
func (s *MRPService) netProduct(ctx context.Context, input *MRPInput, productID, parentID string, level int, entries []demandEntry, result *MRPResultSet) []entity.PlannedOrder {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("产品 %s 不存在: %v", productID, err))
		return nil
	}

	// 同日需求合并
	grossByDate := make(map[time.Time]float64)
	for i := range entries {
		day := truncateDay(entries[i].date)
		grossByDate[day] += entries[i].qty
	}
	dates := make([]time.Time, 0, len(grossByDate))
	for d := range grossByDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	onHand, err := s.inventory.OnHand(ctx, productID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("读取产品 %s 库存失败: %v", productID, err))
		onHand = 0
	}
	receipts, err := s.receipts.FindDueWithin(ctx, productID, input.Horizon.Start, input.Horizon.End)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("读取产品 %s 在途失败: %v", productID, err))
		receipts = nil
	}
	sort.Slice(receipts, func(i, j int) bool { return receipts[i].DueDate.Before(receipts[j].DueDate) })

	leadTime := product.LeadTimeDays
	if leadTime <= 0 {
		leadTime = 1
		result.Warnings = append(result.Warnings, fmt.Sprintf("产品 %s 提前期为0，按默认1天计算", productID))
	}

	var orders []entity.PlannedOrder
	projected := onHand
	cumulativeReceipts := 0.0
	receiptIdx := 0
	now := time.Now()

	for _, date := range dates {
		gross := grossByDate[date]

		// 本需求日之前新到的在途，只计一次
		newReceipts := 0.0
		for receiptIdx < len(receipts) && receipts[receiptIdx].DueDate.Before(date) {
			newReceipts += receipts[receiptIdx].Quantity
			receiptIdx++
		}
		cumulativeReceipts += newReceipts

		available := projected + newReceipts - product.SafetyStock
		net := math.Max(0, gross-available)

		orderDate := date.AddDate(0, 0, -leadTime)
		if orderDate.Before(input.Horizon.Start) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"产品 %s 需求日 %s 的下单日早于计划期起点，已截断", productID, date.Format("2006-01-02")))
			orderDate = input.Horizon.Start
		}

		result.Requirements = append(result.Requirements, entity.MRPRequirement{
			ID:                uuid.New().String()[:32],
			ProductID:         productID,
			ParentProductID:   parentID,
			BOMLevel:          level,
			GrossRequirement:  gross,
			NetRequirement:    net,
			RequiredDate:      date,
			OrderDate:         orderDate,
			OnHand:            onHand,
			ScheduledReceipts: cumulativeReceipts,
			SafetyStock:       product.SafetyStock,
			CreatedAt:         now,
		})

		projected = math.Max(0, available-gross)

		if net <= 0 {
			continue
		}
		lotQty, err := ApplyLotSizing(input.LotSizing, net, input.LotParams)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("产品 %s 批量化失败: %v", productID, err))
			continue
		}
		// 批量超出部分回补预计可用，抵扣后续需求日
		projected += lotQty - net

		orderType := entity.OrderTypePurchase
		if _, err := s.boms.GetEffective(ctx, productID, date); err == nil {
			orderType = entity.OrderTypeManufacturing
		} else if !errors.Is(err, repository.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("判断产品 %s 订单类型失败: %v", productID, err))
		}

		orders = append(orders, entity.PlannedOrder{
			ID:          uuid.New().String()[:32],
			ProductID:   productID,
			Quantity:    lotQty,
			OriginalQty: net,
			StartDate:   orderDate,
			DueDate:     date,
			OrderType:   orderType,
			BOMLevel:    level,
			LotSizing:   input.LotSizing,
			CreatedAt:   now,
		})
	}
	return orders
}

// Run 执行MRP并落库：运行记录 + 需求快照 + 计划订单，结果写入缓存
func (s *MRPService) Run(ctx context.Context, input *MRPInput, createdBy string) (*entity.MRPRun, *MRPResultSet, error) {
	now := time.Now()
	run := &entity.MRPRun{
		ID:                uuid.New().String()[:32],
		RunCode:           fmt.Sprintf("MRP-%s-%s", now.Format("20060102150405"), uuid.New().String()[:6]),
		Status:            entity.MRPStatusRunning,
		ProductID:         input.ProductID,
		HorizonStart:      input.Horizon.Start,
		HorizonEnd:        input.Horizon.End,
		BucketDays:        input.Horizon.BucketDays,
		LotSizingStrategy: input.LotSizing,
		StartedAt:         now,
		CreatedBy:         createdBy,
		CreatedAt:         now,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("create mrp run: %w", err)
	}

	result, err := s.Calculate(ctx, input)
	if err != nil {
		run.Status = entity.MRPStatusFailed
		run.Errors = err.Error()
		completedAt := time.Now()
		run.CompletedAt = &completedAt
		if uerr := s.runs.UpdateRun(ctx, run); uerr != nil {
			s.logger.Error("更新MRP运行记录失败", zap.String("run_id", run.ID), zap.Error(uerr))
		}
		return run, nil, err
	}

	for i := range result.Requirements {
		result.Requirements[i].RunID = run.ID
	}
	for i := range result.PlannedOrders {
		result.PlannedOrders[i].RunID = run.ID
	}
	if len(result.Requirements) > 0 {
		if err := s.runs.CreateRequirements(ctx, result.Requirements); err != nil {
			return nil, nil, fmt.Errorf("save mrp requirements: %w", err)
		}
	}
	if len(result.PlannedOrders) > 0 {
		if err := s.runs.CreatePlannedOrders(ctx, result.PlannedOrders); err != nil {
			return nil, nil, fmt.Errorf("save planned orders: %w", err)
		}
	}

	completedAt := time.Now()
	run.Status = entity.MRPStatusCompleted
	run.CompletedAt = &completedAt
	run.TotalRequirements = len(result.Requirements)
	run.TotalOrders = len(result.PlannedOrders)
	run.Warnings = strings.Join(result.Warnings, "\n")
	run.Errors = strings.Join(result.Errors, "\n")
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("update mrp run: %w", err)
	}

	s.cacheResult(ctx, input.ProductID, result)
	return run, result, nil
}

// GetRun 获取运行记录
func (s *MRPService) GetRun(ctx context.Context, runID string) (*entity.MRPRun, error) {
	return s.runs.FindRunByID(ctx, runID)
}

// ListRuns 获取产品最近的运行记录
func (s *MRPService) ListRuns(ctx context.Context, productID string, limit int) ([]entity.MRPRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.runs.FindRuns(ctx, productID, limit)
}

// GetRunResult 读取落库的运行结果
func (s *MRPService) GetRunResult(ctx context.Context, runID string) (*MRPResultSet, error) {
	run, err := s.runs.FindRunByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mrp run not found: %w", err)
	}
	reqs, err := s.runs.FindRequirements(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("find requirements: %w", err)
	}
	orders, err := s.runs.FindPlannedOrders(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("find planned orders: %w", err)
	}
	result := &MRPResultSet{
		ProductID:    run.ProductID,
		CalculatedAt: run.StartedAt,
		Input: MRPInput{
			ProductID: run.ProductID,
			Horizon:   PlanningHorizon{Start: run.HorizonStart, End: run.HorizonEnd, BucketDays: run.BucketDays},
			LotSizing: run.LotSizingStrategy,
		},
		Requirements:  reqs,
		PlannedOrders: orders,
	}
	if run.Warnings != "" {
		result.Warnings = strings.Split(run.Warnings, "\n")
	}
	if run.Errors != "" {
		result.Errors = strings.Split(run.Errors, "\n")
	}
	return result, nil
}

// Apply 下达运行结果：生产型计划订单转工单
func (s *MRPService) Apply(ctx context.Context, runID, createdBy string) (*entity.MRPRun, error) {
	run, err := s.runs.FindRunByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mrp run not found: %w", err)
	}
	if run.Status != entity.MRPStatusCompleted {
		return nil, &StatusTransitionError{Entity: "MRPRun", ID: runID, Current: run.Status, Attempted: entity.MRPStatusApplied}
	}

	orders, err := s.runs.FindPlannedOrders(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("find planned orders: %w", err)
	}

	generated := 0
	for i := range orders {
		order := &orders[i]
		if order.Applied || order.OrderType != entity.OrderTypeManufacturing {
			continue
		}
		if _, err := s.workOrders.CreateFromPlannedOrder(ctx, order, createdBy); err != nil {
			return nil, fmt.Errorf("create work order for planned order %s: %w", order.ID, err)
		}
		order.Applied = true
		if err := s.runs.UpdatePlannedOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("mark planned order applied: %w", err)
		}
		generated++
	}

	now := time.Now()
	run.Status = entity.MRPStatusApplied
	run.AppliedAt = &now
	run.WOsGenerated = generated
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("update mrp run: %w", err)
	}
	return run, nil
}

// PeggingSource 需求追溯来源
type PeggingSource struct {
	ProductID  string    `json:"product_id"`
	SourceType string    `json:"source_type"` // sales | forecast | work_order | derived_from_<sourceType>
	SourceID   string    `json:"source_id"`
	Quantity   float64   `json:"quantity"`
	DueDate    time.Time `json:"due_date"`
}

// Pegging 追溯指定产品指定日期的需求来源：本产品的独立需求、
// 在制工单的相关需求（work_order），加上沿where-used向上追溯的
// 父装配需求（标记derived_from_<来源>）
func (s *MRPService) Pegging(ctx context.Context, productID string, date time.Time) ([]PeggingSource, error) {
	day := truncateDay(date)
	next := day.AddDate(0, 0, 1)

	var sources []PeggingSource
	demands, err := s.demands.FindDueWithin(ctx, productID, day, next)
	if err != nil {
		return nil, fmt.Errorf("find demands: %w", err)
	}
	for i := range demands {
		sources = append(sources, PeggingSource{
			ProductID:  productID,
			SourceType: demands[i].SourceType,
			SourceID:   demands[i].SourceID,
			Quantity:   demands[i].Quantity,
			DueDate:    demands[i].DueDate,
		})
	}

	dependents, err := s.dependentDemands(ctx, productID, day, next)
	if err != nil {
		return nil, err
	}
	for i := range dependents {
		sources = append(sources, PeggingSource{
			ProductID:  dependents[i].parentProduct,
			SourceType: "work_order",
			SourceID:   dependents[i].workOrderCode,
			Quantity:   dependents[i].qty,
			DueDate:    dependents[i].date,
		})
	}

	if err := s.pegParents(ctx, productID, day, next, 0, map[string]bool{productID: true}, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (s *MRPService) pegParents(ctx context.Context, productID string, from, to time.Time, depth int, visited map[string]bool, sources *[]PeggingSource) error {
	if depth >= maxMRPLevels {
		return nil
	}
	parents, err := s.boms.WhereUsed(ctx, productID)
	if err != nil {
		return fmt.Errorf("where-used %s: %w", productID, err)
	}
	for i := range parents {
		parentID := parents[i].ProductID
		if visited[parentID] {
			continue
		}
		visited[parentID] = true

		demands, err := s.demands.FindDueWithin(ctx, parentID, from, to)
		if err != nil {
			return fmt.Errorf("find demands for %s: %w", parentID, err)
		}
		for j := range demands {
			*sources = append(*sources, PeggingSource{
				ProductID:  parentID,
				SourceType: "derived_from_" + demands[j].SourceType,
				SourceID:   demands[j].SourceID,
				Quantity:   demands[j].Quantity,
				DueDate:    demands[j].DueDate,
			})
		}
		if err := s.pegParents(ctx, parentID, from, to, depth+1, visited, sources); err != nil {
			return err
		}
	}
	return nil
}

// LatestResult 读取产品最近一次MRP结果的缓存
func (s *MRPService) LatestResult(ctx context.Context, productID string) (*MRPResultSet, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("缓存未启用")
	}
	data, err := s.cache.Get(ctx, mrpCacheKey(productID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("get cached mrp result: %w", err)
	}
	var result MRPResultSet
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal cached mrp result: %w", err)
	}
	return &result, nil
}

func (s *MRPService) cacheResult(ctx context.Context, productID string, result *MRPResultSet) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("序列化MRP结果失败", zap.String("product_id", productID), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, mrpCacheKey(productID), data, mrpCacheTTL).Err(); err != nil {
		s.logger.Warn("缓存MRP结果失败", zap.String("product_id", productID), zap.Error(err))
	}
}

func mrpCacheKey(productID string) string {
	return "aps:mrp:latest:" + productID
}
