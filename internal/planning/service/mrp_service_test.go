package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/testutil"
)

type mrpFixture struct {
	products   *testutil.MemoryProductStore
	demands    *testutil.MemoryDemandStore
	receipts   *testutil.MemoryReceiptStore
	inventory  *testutil.MemoryInventoryStore
	boms       *testutil.MemoryBOMStore
	workOrders *testutil.MemoryWorkOrderStore
	runs       *testutil.MemoryMRPStore
	svc        *MRPService
}

func newMRPTest() *mrpFixture {
	f := &mrpFixture{
		products:   testutil.NewMemoryProductStore(),
		demands:    testutil.NewMemoryDemandStore(),
		receipts:   testutil.NewMemoryReceiptStore(),
		inventory:  testutil.NewMemoryInventoryStore(),
		boms:       testutil.NewMemoryBOMStore(),
		workOrders: testutil.NewMemoryWorkOrderStore(),
		runs:       testutil.NewMemoryMRPStore(),
	}
	bomSvc := NewBOMService(f.boms)
	routingSvc := NewRoutingService(testutil.NewMemoryRoutingStore(), testutil.NewMemoryWorkCenterStore())
	woSvc := NewWorkOrderService(f.workOrders, bomSvc, routingSvc, nil)
	f.svc = NewMRPService(bomSvc, f.products, f.demands, f.receipts, f.inventory, f.runs, woSvc, nil, nil)
	return f
}

func (f *mrpFixture) addProduct(id, code string, leadTimeDays int, safetyStock float64) {
	f.products.Add(&entity.Product{
		ID: id, Code: code, Name: "测试物料 " + code, Unit: "pcs",
		LeadTimeDays: leadTimeDays, SafetyStock: safetyStock,
		Status: entity.ProductStatusActive,
	})
}

// seedOpenWorkOrder 直接落一张带物料行的工单，用于相关需求场景
func (f *mrpFixture) seedOpenWorkOrder(id, productID, componentID string, planned, issued float64, start time.Time, status string) {
	ctx := context.Background()
	s := start
	f.workOrders.Create(ctx, &entity.WorkOrder{
		ID: id, Code: "WO-" + id, ProductID: productID, Quantity: 10,
		Status: status, PlannedStart: &s, CreatedBy: "tester",
	})
	f.workOrders.CreateLines(ctx, []entity.WorkOrderLine{{
		ID: id + "-m1", WorkOrderID: id, LineNumber: 1, LineType: entity.WOLineTypeMaterial,
		ComponentID: componentID, PlannedQty: planned, IssuedQty: issued, Unit: "pcs",
	}})
}

func marchHorizon() PlanningHorizon {
	return NewPlanningHorizon(testutil.Date(2026, 3, 1), testutil.Date(2026, 5, 1), 7)
}

func TestMRPCalculateValidation(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	if _, err := f.svc.Calculate(ctx, &MRPInput{Horizon: marchHorizon()}); err == nil {
		t.Fatal("Expected error for empty product id, got nil")
	}
	bad := NewPlanningHorizon(testutil.Date(2026, 5, 1), testutil.Date(2026, 3, 1), 7)
	if _, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-fan", Horizon: bad}); err == nil {
		t.Fatal("Expected error for inverted horizon, got nil")
	}
}

func TestMRPCalculateNoDemand(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()
	f.addProduct("prod-fan", "FAN-100", 5, 0)

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-fan", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(result.Requirements) != 0 || len(result.PlannedOrders) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "没有需求") {
		t.Errorf("Expected no-demand warning, got %v", result.Warnings)
	}
}

func TestMRPDependentDemandFromWorkOrders(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)

	// 已下达工单欠领15（计划20已领5），相关需求落在计划开工日
	f.seedOpenWorkOrder("wo-1", "prod-asm", "prod-part", 20, 5, testutil.Date(2026, 3, 10), entity.WOStatusReleased)
	// 已取消的工单不产生需求
	f.seedOpenWorkOrder("wo-2", "prod-asm", "prod-part", 30, 0, testutil.Date(2026, 3, 12), entity.WOStatusCancelled)
	// 同日独立需求与工单需求合并为毛需求
	f.demands.Add(&entity.Demand{
		ID: "dem-1", ProductID: "prod-part", Quantity: 5,
		DueDate: testutil.Date(2026, 3, 10), SourceType: entity.DemandSourceForecast,
	})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-part", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Unexpected calculation errors: %v", result.Errors)
	}
	if len(result.Requirements) != 1 {
		t.Fatalf("Expected 1 requirement, got %d", len(result.Requirements))
	}
	req := result.Requirements[0]
	if req.GrossRequirement != 20 || req.NetRequirement != 20 {
		t.Errorf("Expected merged gross/net 20, got %+v", req)
	}
	if !req.RequiredDate.Equal(testutil.Date(2026, 3, 10)) {
		t.Errorf("Expected requirement on work order start date, got %v", req.RequiredDate)
	}
	if len(result.PlannedOrders) != 1 {
		t.Fatalf("Expected 1 planned order, got %d", len(result.PlannedOrders))
	}
	order := result.PlannedOrders[0]
	if order.Quantity != 20 || order.OrderType != entity.OrderTypePurchase {
		t.Errorf("Unexpected planned order: %+v", order)
	}
	if !order.StartDate.Equal(testutil.Date(2026, 3, 7)) {
		t.Errorf("Expected order start offset by lead time, got %v", order.StartDate)
	}
}

func TestMRPDependentDemandOnlyNoIndependent(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)
	f.seedOpenWorkOrder("wo-1", "prod-asm", "prod-part", 20, 0, testutil.Date(2026, 3, 10), entity.WOStatusReleased)

	// 没有独立需求也要为工单欠料生成计划
	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-part", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
	if len(result.Requirements) != 1 || result.Requirements[0].GrossRequirement != 20 {
		t.Fatalf("Expected gross 20 from work order demand, got %+v", result.Requirements)
	}
	if len(result.PlannedOrders) != 1 || result.PlannedOrders[0].Quantity != 20 {
		t.Fatalf("Expected planned order for 20, got %+v", result.PlannedOrders)
	}
}

func TestMRPNettingAgainstStockAndSafety(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-fan", "FAN-100", 5, 2)
	f.inventory.Set("prod-fan", 10)
	f.demands.Add(&entity.Demand{
		ID: "dem-1", ProductID: "prod-fan", Quantity: 15,
		DueDate: testutil.Date(2026, 3, 30), SourceType: entity.DemandSourceSales,
	})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-fan", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if result.CalculatedAt.IsZero() {
		t.Error("Expected calculation timestamp on result")
	}
	if result.Input.LotSizing != LotForLot || !result.Input.Horizon.Start.Equal(testutil.Date(2026, 3, 1)) {
		t.Errorf("Expected input parameters echoed on result, got %+v", result.Input)
	}
	if len(result.Requirements) != 1 {
		t.Fatalf("Expected 1 requirement, got %d", len(result.Requirements))
	}
	req := result.Requirements[0]
	if req.GrossRequirement != 15 {
		t.Errorf("Expected gross 15, got %v", req.GrossRequirement)
	}
	// 可用 = 10现有 - 2安全库存 = 8 → 净需求 7
	if req.NetRequirement != 7 {
		t.Errorf("Expected net 7, got %v", req.NetRequirement)
	}
	if !req.OrderDate.Equal(testutil.Date(2026, 3, 25)) {
		t.Errorf("Expected order date 2026-03-25, got %v", req.OrderDate)
	}
	if req.OnHand != 10 || req.SafetyStock != 2 {
		t.Errorf("Unexpected stock snapshot: %+v", req)
	}

	if len(result.PlannedOrders) != 1 {
		t.Fatalf("Expected 1 planned order, got %d", len(result.PlannedOrders))
	}
	order := result.PlannedOrders[0]
	if order.Quantity != 7 || order.OriginalQty != 7 {
		t.Errorf("Expected order quantity 7, got %+v", order)
	}
	if !order.StartDate.Equal(testutil.Date(2026, 3, 25)) || !order.DueDate.Equal(testutil.Date(2026, 3, 30)) {
		t.Errorf("Unexpected order dates: %+v", order)
	}
	// 无生效BOM的产品按采购计划
	if order.OrderType != entity.OrderTypePurchase {
		t.Errorf("Expected purchase order, got %s", order.OrderType)
	}
}

func TestMRPReceiptsConsumedOnce(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-fan", "FAN-100", 1, 0)
	f.receipts.Add(&entity.ScheduledReceipt{
		ID: "rcpt-1", ProductID: "prod-fan", Quantity: 5,
		DueDate: testutil.Date(2026, 3, 10), SourceType: entity.ReceiptSourcePurchaseOrder,
	})
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-fan", Quantity: 10, DueDate: testutil.Date(2026, 3, 15), SourceType: entity.DemandSourceSales})
	f.demands.Add(&entity.Demand{ID: "dem-2", ProductID: "prod-fan", Quantity: 10, DueDate: testutil.Date(2026, 3, 20), SourceType: entity.DemandSourceSales})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-fan", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(result.PlannedOrders) != 2 {
		t.Fatalf("Expected 2 planned orders, got %d", len(result.PlannedOrders))
	}
	// 首个需求日吃掉在途5，第二个需求日不能重复计入
	if result.PlannedOrders[0].Quantity != 5 {
		t.Errorf("Expected first order 5, got %v", result.PlannedOrders[0].Quantity)
	}
	if result.PlannedOrders[1].Quantity != 10 {
		t.Errorf("Expected second order 10, got %v", result.PlannedOrders[1].Quantity)
	}
	if result.Requirements[0].ScheduledReceipts != 5 || result.Requirements[1].ScheduledReceipts != 5 {
		t.Errorf("Expected cumulative receipts 5 on both requirements, got %+v", result.Requirements)
	}
}

func TestMRPLotSizingExcessCoversLaterDemand(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-fan", "FAN-100", 1, 0)
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-fan", Quantity: 10, DueDate: testutil.Date(2026, 3, 10), SourceType: entity.DemandSourceSales})
	f.demands.Add(&entity.Demand{ID: "dem-2", ProductID: "prod-fan", Quantity: 5, DueDate: testutil.Date(2026, 3, 20), SourceType: entity.DemandSourceSales})

	result, err := f.svc.Calculate(ctx, &MRPInput{
		ProductID: "prod-fan",
		Horizon:   marchHorizon(),
		LotSizing: FixedOrderQty,
		LotParams: LotSizingParams{FixedQuantity: 20},
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// 首单按固定批量20，超出的10抵扣第二个需求日
	if len(result.PlannedOrders) != 1 {
		t.Fatalf("Expected single planned order, got %d", len(result.PlannedOrders))
	}
	if result.PlannedOrders[0].Quantity != 20 || result.PlannedOrders[0].OriginalQty != 10 {
		t.Errorf("Unexpected order: %+v", result.PlannedOrders[0])
	}
	if result.Requirements[1].NetRequirement != 0 {
		t.Errorf("Expected second net requirement 0, got %v", result.Requirements[1].NetRequirement)
	}
}

func TestMRPLeadTimeWarnings(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	// 提前期0按1天兜底；需求日在计划期首日导致下单日被截断
	f.addProduct("prod-fan", "FAN-100", 0, 0)
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-fan", Quantity: 10, DueDate: testutil.Date(2026, 3, 1), SourceType: entity.DemandSourceSales})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-fan", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	joined := strings.Join(result.Warnings, ";")
	if !strings.Contains(joined, "提前期为0") {
		t.Errorf("Expected zero lead time warning, got %v", result.Warnings)
	}
	if !strings.Contains(joined, "已截断") {
		t.Errorf("Expected order date truncation warning, got %v", result.Warnings)
	}
	if !result.Requirements[0].OrderDate.Equal(testutil.Date(2026, 3, 1)) {
		t.Errorf("Expected order date clipped to horizon start, got %v", result.Requirements[0].OrderDate)
	}
}

func TestMRPMultiLevelExplosion(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)
	// 装配件BOM：2×零件，长期生效
	seedReleasedBOM(f.boms, "bom-asm", "prod-asm", testutil.Date(2025, 1, 1),
		entity.BOMLine{LineNumber: 1, ComponentID: "prod-part", Quantity: 2})
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-asm", Quantity: 10, DueDate: testutil.Date(2026, 3, 20), SourceType: entity.DemandSourceSales})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-asm", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Unexpected calculation errors: %v", result.Errors)
	}
	if len(result.PlannedOrders) != 2 {
		t.Fatalf("Expected 2 planned orders, got %d", len(result.PlannedOrders))
	}

	asm := result.PlannedOrders[0]
	if asm.ProductID != "prod-asm" || asm.OrderType != entity.OrderTypeManufacturing {
		t.Errorf("Expected manufacturing order for assembly, got %+v", asm)
	}
	if !asm.StartDate.Equal(testutil.Date(2026, 3, 18)) {
		t.Errorf("Expected assembly start 2026-03-18, got %v", asm.StartDate)
	}

	part := result.PlannedOrders[1]
	if part.ProductID != "prod-part" || part.OrderType != entity.OrderTypePurchase {
		t.Errorf("Expected purchase order for component, got %+v", part)
	}
	// 派生需求落在父订单开工日，数量 = 单位用量 × 父订单量
	if part.Quantity != 20 {
		t.Errorf("Expected component quantity 20, got %v", part.Quantity)
	}
	if !part.DueDate.Equal(testutil.Date(2026, 3, 18)) || !part.StartDate.Equal(testutil.Date(2026, 3, 15)) {
		t.Errorf("Unexpected component dates: %+v", part)
	}
	if part.BOMLevel != 1 {
		t.Errorf("Expected component at level 1, got %d", part.BOMLevel)
	}

	var childReq *entity.MRPRequirement
	for i := range result.Requirements {
		if result.Requirements[i].ProductID == "prod-part" {
			childReq = &result.Requirements[i]
		}
	}
	if childReq == nil {
		t.Fatal("Expected requirement row for component")
	}
	if childReq.ParentProductID != "prod-asm" || childReq.BOMLevel != 1 || childReq.GrossRequirement != 20 {
		t.Errorf("Unexpected component requirement: %+v", childReq)
	}
}

func TestMRPScrapFactorInflatesDerivedDemand(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)
	// 2×零件，20%损耗 → 单位用量 2.5
	seedReleasedBOM(f.boms, "bom-asm", "prod-asm", testutil.Date(2025, 1, 1),
		entity.BOMLine{LineNumber: 1, ComponentID: "prod-part", Quantity: 2, ScrapFactor: 0.2})
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-asm", Quantity: 10, DueDate: testutil.Date(2026, 3, 20), SourceType: entity.DemandSourceSales})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: "prod-asm", Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(result.PlannedOrders) != 2 {
		t.Fatalf("Expected 2 planned orders, got %d", len(result.PlannedOrders))
	}
	if math.Abs(result.PlannedOrders[1].Quantity-25) > 1e-9 {
		t.Errorf("Expected scrap-inflated quantity 25, got %v", result.PlannedOrders[1].Quantity)
	}
}

func TestMRPRunPersistsAndApply(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)
	seedReleasedBOM(f.boms, "bom-asm", "prod-asm", testutil.Date(2025, 1, 1),
		entity.BOMLine{LineNumber: 1, ComponentID: "prod-part", Quantity: 2})
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-asm", Quantity: 10, DueDate: testutil.Date(2026, 3, 20), SourceType: entity.DemandSourceSales})

	input := &MRPInput{ProductID: "prod-asm", Horizon: marchHorizon(), LotSizing: LotForLot}
	run, result, err := f.svc.Run(ctx, input, "planner")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != entity.MRPStatusCompleted {
		t.Fatalf("Expected completed run, got %s", run.Status)
	}
	if run.TotalRequirements != len(result.Requirements) || run.TotalOrders != len(result.PlannedOrders) {
		t.Errorf("Run counters do not match result: %+v", run)
	}

	// 落库结果可回读
	stored, err := f.svc.GetRunResult(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run result: %v", err)
	}
	if len(stored.Requirements) != 2 || len(stored.PlannedOrders) != 2 {
		t.Fatalf("Unexpected stored result: %d reqs, %d orders", len(stored.Requirements), len(stored.PlannedOrders))
	}
	if stored.CalculatedAt.IsZero() || stored.Input.LotSizing != LotForLot {
		t.Errorf("Expected run parameters on stored result, got %+v", stored.Input)
	}
	for _, order := range stored.PlannedOrders {
		if order.RunID != run.ID {
			t.Errorf("Expected order bound to run, got %+v", order)
		}
	}

	// 下达：只有生产型订单转工单
	applied, err := f.svc.Apply(ctx, run.ID, "planner")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.Status != entity.MRPStatusApplied || applied.AppliedAt == nil {
		t.Errorf("Expected applied run, got %+v", applied)
	}
	if applied.WOsGenerated != 1 {
		t.Errorf("Expected 1 work order generated, got %d", applied.WOsGenerated)
	}
	if len(f.workOrders.WorkOrders) != 1 {
		t.Fatalf("Expected 1 work order in store, got %d", len(f.workOrders.WorkOrders))
	}
	for _, wo := range f.workOrders.WorkOrders {
		if wo.ProductID != "prod-asm" || wo.Quantity != 10 || wo.SourceType != "MRP" {
			t.Errorf("Unexpected work order: %+v", wo)
		}
	}
	orders, _ := f.runs.FindPlannedOrders(ctx, run.ID)
	for _, order := range orders {
		if order.OrderType == entity.OrderTypeManufacturing && !order.Applied {
			t.Errorf("Expected manufacturing order marked applied: %+v", order)
		}
		if order.OrderType == entity.OrderTypePurchase && order.Applied {
			t.Errorf("Expected purchase order left untouched: %+v", order)
		}
	}

	// 已下达的运行不能重复下达
	var transErr *StatusTransitionError
	if _, err := f.svc.Apply(ctx, run.ID, "planner"); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on second apply, got %v", err)
	}
}

func TestMRPListRuns(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-fan", "FAN-100", 1, 0)
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-fan", Quantity: 5, DueDate: testutil.Date(2026, 3, 10), SourceType: entity.DemandSourceSales})

	input := &MRPInput{ProductID: "prod-fan", Horizon: marchHorizon(), LotSizing: LotForLot}
	if _, _, err := f.svc.Run(ctx, input, "planner"); err != nil {
		t.Fatalf("run: %v", err)
	}
	runs, err := f.svc.ListRuns(ctx, "prod-fan", 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ProductID != "prod-fan" {
		t.Fatalf("Unexpected runs: %+v", runs)
	}
	if !strings.HasPrefix(runs[0].RunCode, "MRP-") {
		t.Errorf("Expected MRP run code prefix, got %s", runs[0].RunCode)
	}
}

func TestMRPPeggingTracesParents(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)
	seedReleasedBOM(f.boms, "bom-asm", "prod-asm", testutil.Date(2025, 1, 1),
		entity.BOMLine{LineNumber: 1, ComponentID: "prod-part", Quantity: 2})

	due := testutil.Date(2026, 4, 1)
	f.demands.Add(&entity.Demand{ID: "dem-own", ProductID: "prod-part", Quantity: 5, DueDate: due, SourceType: entity.DemandSourceForecast, SourceID: "fc-2026q2"})
	f.demands.Add(&entity.Demand{ID: "dem-parent", ProductID: "prod-asm", Quantity: 10, DueDate: due, SourceType: entity.DemandSourceSales, SourceID: "so-1001"})

	sources, err := f.svc.Pegging(ctx, "prod-part", due)
	if err != nil {
		t.Fatalf("pegging: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Expected 2 pegging sources, got %+v", sources)
	}
	if sources[0].SourceType != entity.DemandSourceForecast || sources[0].ProductID != "prod-part" {
		t.Errorf("Unexpected own demand source: %+v", sources[0])
	}
	if sources[1].SourceType != "derived_from_sales" || sources[1].ProductID != "prod-asm" {
		t.Errorf("Unexpected derived source: %+v", sources[1])
	}
}

func TestMRPPeggingIncludesWorkOrderSources(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 0)
	f.addProduct("prod-part", "PRT-100", 3, 0)

	day := testutil.Date(2026, 4, 1)
	f.seedOpenWorkOrder("wo-1", "prod-asm", "prod-part", 20, 0, day, entity.WOStatusReleased)
	// 开工日不同的工单不计入
	f.seedOpenWorkOrder("wo-2", "prod-asm", "prod-part", 8, 0, testutil.Date(2026, 4, 5), entity.WOStatusReleased)

	sources, err := f.svc.Pegging(ctx, "prod-part", day)
	if err != nil {
		t.Fatalf("pegging: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("Expected single work order source, got %+v", sources)
	}
	src := sources[0]
	if src.SourceType != "work_order" || src.SourceID != "WO-wo-1" {
		t.Errorf("Unexpected source: %+v", src)
	}
	if src.ProductID != "prod-asm" || src.Quantity != 20 {
		t.Errorf("Unexpected source detail: %+v", src)
	}
}

func TestMRPCalculateRepeatable(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-asm", "ASM-100", 2, 1)
	f.addProduct("prod-part", "PRT-100", 3, 0)
	f.inventory.Set("prod-asm", 4)
	seedReleasedBOM(f.boms, "bom-asm", "prod-asm", testutil.Date(2025, 1, 1),
		entity.BOMLine{LineNumber: 1, ComponentID: "prod-part", Quantity: 2})
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: "prod-asm", Quantity: 10, DueDate: testutil.Date(2026, 3, 20), SourceType: entity.DemandSourceSales})
	f.demands.Add(&entity.Demand{ID: "dem-2", ProductID: "prod-asm", Quantity: 5, DueDate: testutil.Date(2026, 4, 2), SourceType: entity.DemandSourceForecast})

	input := &MRPInput{ProductID: "prod-asm", Horizon: marchHorizon(), LotSizing: LotForLot}
	first, err := f.svc.Calculate(ctx, input)
	if err != nil {
		t.Fatalf("first calculate: %v", err)
	}
	second, err := f.svc.Calculate(ctx, input)
	if err != nil {
		t.Fatalf("second calculate: %v", err)
	}

	// 输入不变时两次计算的需求与订单必须一致
	if len(first.Requirements) != len(second.Requirements) {
		t.Fatalf("Requirement count changed: %d vs %d", len(first.Requirements), len(second.Requirements))
	}
	for i := range first.Requirements {
		a, b := first.Requirements[i], second.Requirements[i]
		if a.ProductID != b.ProductID || a.BOMLevel != b.BOMLevel ||
			a.GrossRequirement != b.GrossRequirement || a.NetRequirement != b.NetRequirement ||
			!a.RequiredDate.Equal(b.RequiredDate) || !a.OrderDate.Equal(b.OrderDate) ||
			a.ScheduledReceipts != b.ScheduledReceipts {
			t.Errorf("Requirement %d differs: %+v vs %+v", i, a, b)
		}
	}
	if len(first.PlannedOrders) != len(second.PlannedOrders) {
		t.Fatalf("Planned order count changed: %d vs %d", len(first.PlannedOrders), len(second.PlannedOrders))
	}
	for i := range first.PlannedOrders {
		a, b := first.PlannedOrders[i], second.PlannedOrders[i]
		if a.ProductID != b.ProductID || a.Quantity != b.Quantity || a.OriginalQty != b.OriginalQty ||
			!a.StartDate.Equal(b.StartDate) || !a.DueDate.Equal(b.DueDate) ||
			a.OrderType != b.OrderType || a.BOMLevel != b.BOMLevel {
			t.Errorf("Planned order %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestMRPDeepBOMTruncation(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	// 12级链式BOM，超出层级上限的部分只发警告不展开
	const depth = 12
	ids := make([]string, depth)
	for i := 0; i < depth; i++ {
		ids[i] = fmt.Sprintf("prod-l%02d", i)
		f.addProduct(ids[i], fmt.Sprintf("LVL-%02d", i), 1, 0)
	}
	for i := 0; i < depth-1; i++ {
		seedReleasedBOM(f.boms, fmt.Sprintf("bom-l%02d", i), ids[i], testutil.Date(2025, 1, 1),
			entity.BOMLine{LineNumber: 1, ComponentID: ids[i+1], Quantity: 1})
	}
	f.demands.Add(&entity.Demand{ID: "dem-1", ProductID: ids[0], Quantity: 5, DueDate: testutil.Date(2026, 4, 1), SourceType: entity.DemandSourceSales})

	result, err := f.svc.Calculate(ctx, &MRPInput{ProductID: ids[0], Horizon: marchHorizon(), LotSizing: LotForLot})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !strings.Contains(strings.Join(result.Warnings, ";"), "多级展开截断") {
		t.Errorf("Expected truncation warning, got %v", result.Warnings)
	}
	// 层级0-10各一条需求，第11级不再展开
	if len(result.Requirements) != maxMRPLevels+1 {
		t.Fatalf("Expected %d requirements, got %d", maxMRPLevels+1, len(result.Requirements))
	}
	for i := range result.Requirements {
		if result.Requirements[i].ProductID == ids[depth-1] {
			t.Errorf("Expected no requirement beyond level %d, got %+v", maxMRPLevels, result.Requirements[i])
		}
	}
}

func TestMRPLatestResultWithoutCache(t *testing.T) {
	f := newMRPTest()
	if _, err := f.svc.LatestResult(context.Background(), "prod-fan"); err == nil {
		t.Fatal("Expected error when cache disabled, got nil")
	}
}
