package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/testutil"
)

type workOrderFixture struct {
	woStore      *testutil.MemoryWorkOrderStore
	bomStore     *testutil.MemoryBOMStore
	routingStore *testutil.MemoryRoutingStore
	wcStore      *testutil.MemoryWorkCenterStore
	svc          *WorkOrderService
}

func newWorkOrderTest() *workOrderFixture {
	f := &workOrderFixture{
		woStore:      testutil.NewMemoryWorkOrderStore(),
		bomStore:     testutil.NewMemoryBOMStore(),
		routingStore: testutil.NewMemoryRoutingStore(),
		wcStore:      testutil.NewMemoryWorkCenterStore(),
	}
	bomSvc := NewBOMService(f.bomStore)
	routingSvc := NewRoutingService(f.routingStore, f.wcStore)
	f.svc = NewWorkOrderService(f.woStore, bomSvc, routingSvc, nil)
	return f
}

// seedEffectiveMasterData 当前生效的BOM（2×B，20%损耗）与工艺路线（工序10）
func (f *workOrderFixture) seedEffectiveMasterData() {
	since := time.Now().Add(-time.Hour)
	seedReleasedBOM(f.bomStore, "bom-a", "prod-a", since,
		entity.BOMLine{LineNumber: 1, ComponentID: "prod-b", Quantity: 2, ScrapFactor: 0.2})
	seedRouting(f.routingStore, "rt-a", "prod-a", since,
		entity.RoutingOperation{OperationNo: 10, WorkCenterID: "wc-1", SetupMinutes: 30, RunMinutesPerUnit: 6})
}

func (f *workOrderFixture) seedStatusWO(id, status string) {
	f.woStore.Create(context.Background(), &entity.WorkOrder{
		ID: id, Code: "WO-" + id, ProductID: "prod-a", Quantity: 10, Status: status,
	})
}

func TestWorkOrderCreateBuildsLines(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedEffectiveMasterData()

	wo, err := f.svc.Create(ctx, &CreateWorkOrderInput{ProductID: "prod-a", Quantity: 10}, "tester")
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	if !strings.HasPrefix(wo.Code, "WO-") {
		t.Errorf("Unexpected work order code: %s", wo.Code)
	}
	if wo.Status != entity.WOStatusPlanned || wo.SourceType != "MANUAL" {
		t.Errorf("Unexpected work order defaults: %+v", wo)
	}
	if len(wo.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(wo.Lines))
	}

	material := wo.Lines[0]
	if material.LineType != entity.WOLineTypeMaterial || material.ComponentID != "prod-b" {
		t.Errorf("Unexpected material line: %+v", material)
	}
	// 2 × 10 / (1-0.2) = 25
	if math.Abs(material.PlannedQty-25) > 1e-9 {
		t.Errorf("Expected planned quantity 25, got %v", material.PlannedQty)
	}

	op := wo.Lines[1]
	if op.LineType != entity.WOLineTypeOperation || op.WorkCenterID != "wc-1" {
		t.Errorf("Unexpected operation line: %+v", op)
	}
	if math.Abs(op.PlannedSetupHours-0.5) > 1e-9 || math.Abs(op.PlannedRunHours-1) > 1e-9 {
		t.Errorf("Unexpected planned hours: %+v", op)
	}
}

func TestWorkOrderCreateWithoutMasterData(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()

	// 没有BOM和工艺路线也能建工单，只是没有行
	wo, err := f.svc.Create(ctx, &CreateWorkOrderInput{ProductID: "prod-x", Quantity: 5}, "tester")
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	if len(wo.Lines) != 0 {
		t.Errorf("Expected no lines, got %d", len(wo.Lines))
	}

	if _, err := f.svc.Create(ctx, &CreateWorkOrderInput{ProductID: "prod-x", Quantity: 0}, "tester"); err == nil {
		t.Fatal("Expected quantity error, got nil")
	}
}

func TestWorkOrderLifecycle(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedEffectiveMasterData()

	wo, _ := f.svc.Create(ctx, &CreateWorkOrderInput{ProductID: "prod-a", Quantity: 10}, "tester")

	// 未下达不能开工
	var transErr *StatusTransitionError
	if _, err := f.svc.Start(ctx, wo.ID); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on planned start, got %v", err)
	}
	if _, err := f.svc.Close(ctx, wo.ID); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on planned close, got %v", err)
	}

	released, err := f.svc.Release(ctx, wo.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != entity.WOStatusReleased {
		t.Fatalf("Expected released status, got %s", released.Status)
	}

	// 首次报工自动开工
	reported, err := f.svc.ReportCompletion(ctx, wo.ID, 4, 0)
	if err != nil {
		t.Fatalf("report completion: %v", err)
	}
	if reported.Status != entity.WOStatusInProgress || reported.ActualStart == nil {
		t.Errorf("Expected auto-started work order, got %+v", reported)
	}
	if reported.CompletedQty != 4 {
		t.Errorf("Expected completed 4, got %v", reported.CompletedQty)
	}

	// 完工数达到下达数自动完工
	done, err := f.svc.ReportCompletion(ctx, wo.ID, 6, 1)
	if err != nil {
		t.Fatalf("report completion: %v", err)
	}
	if done.Status != entity.WOStatusCompleted || done.ActualEnd == nil {
		t.Errorf("Expected completed work order, got %+v", done)
	}
	if done.CompletedQty != 10 || done.ScrapQty != 1 {
		t.Errorf("Unexpected quantities: %+v", done)
	}

	closed, err := f.svc.Close(ctx, wo.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != entity.WOStatusClosed {
		t.Errorf("Expected closed status, got %s", closed.Status)
	}

	// 终态不可取消
	if _, err := f.svc.Cancel(ctx, wo.ID, "太晚了"); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on closed cancel, got %v", err)
	}
}

func TestWorkOrderReportValidation(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedStatusWO("wo-planned", entity.WOStatusPlanned)
	f.seedStatusWO("wo-released", entity.WOStatusReleased)

	var transErr *StatusTransitionError
	if _, err := f.svc.ReportCompletion(ctx, "wo-planned", 1, 0); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on planned report, got %v", err)
	}
	if _, err := f.svc.ReportCompletion(ctx, "wo-released", -1, 0); err == nil || !strings.Contains(err.Error(), "不能为负") {
		t.Fatalf("Expected negative quantity error, got %v", err)
	}
}

func TestWorkOrderHoldAndResume(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedStatusWO("wo-1", entity.WOStatusReleased)

	held, err := f.svc.Hold(ctx, "wo-1", "缺料")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Status != entity.WOStatusOnHold || held.PreviousStatus != entity.WOStatusReleased || held.HoldReason != "缺料" {
		t.Errorf("Unexpected held work order: %+v", held)
	}

	resumed, err := f.svc.Resume(ctx, "wo-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != entity.WOStatusReleased || resumed.PreviousStatus != "" || resumed.HoldReason != "" {
		t.Errorf("Expected restore to released, got %+v", resumed)
	}

	// 在制中暂停恢复回在制
	f.seedStatusWO("wo-2", entity.WOStatusInProgress)
	f.svc.Hold(ctx, "wo-2", "设备故障")
	resumed, err = f.svc.Resume(ctx, "wo-2")
	if err != nil {
		t.Fatalf("resume in-progress: %v", err)
	}
	if resumed.Status != entity.WOStatusInProgress {
		t.Errorf("Expected restore to in-progress, got %s", resumed.Status)
	}

	// 非暂停状态不能恢复
	var transErr *StatusTransitionError
	if _, err := f.svc.Resume(ctx, "wo-1"); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on double resume, got %v", err)
	}
}

func TestWorkOrderChangeQuantityRebuildsLines(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedEffectiveMasterData()

	wo, _ := f.svc.Create(ctx, &CreateWorkOrderInput{ProductID: "prod-a", Quantity: 10}, "tester")
	f.svc.Release(ctx, wo.ID)
	f.svc.ReportCompletion(ctx, wo.ID, 4, 0)

	// 在制工单不能调量
	var transErr *StatusTransitionError
	if _, err := f.svc.ChangeQuantity(ctx, wo.ID, 20); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on in-progress change, got %v", err)
	}

	wo2, _ := f.svc.Create(ctx, &CreateWorkOrderInput{ProductID: "prod-a", Quantity: 10}, "tester")
	changed, err := f.svc.ChangeQuantity(ctx, wo2.ID, 20)
	if err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if changed.Quantity != 20 {
		t.Errorf("Expected quantity 20, got %v", changed.Quantity)
	}
	// 行按新数量重建：2 × 20 / 0.8 = 50
	if len(changed.Lines) != 2 || math.Abs(changed.Lines[0].PlannedQty-50) > 1e-9 {
		t.Errorf("Expected rebuilt material line with 50, got %+v", changed.Lines)
	}
}

func TestWorkOrderChangeQuantityBelowCompleted(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.woStore.Create(ctx, &entity.WorkOrder{
		ID: "wo-1", Code: "WO-wo-1", ProductID: "prod-a", Quantity: 10,
		CompletedQty: 6, Status: entity.WOStatusReleased,
	})

	_, err := f.svc.ChangeQuantity(ctx, "wo-1", 5)
	if err == nil || !strings.Contains(err.Error(), "不能低于已完工数量") {
		t.Fatalf("Expected below-completed error, got %v", err)
	}
}

func TestWorkOrderRescheduleGating(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedStatusWO("wo-1", entity.WOStatusPlanned)
	f.seedStatusWO("wo-2", entity.WOStatusCompleted)

	start := testutil.Date(2026, 3, 9)
	end := testutil.Date(2026, 3, 12)
	wo, err := f.svc.Reschedule(ctx, "wo-1", &start, &end)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if wo.PlannedStart == nil || !wo.PlannedStart.Equal(start) || !wo.PlannedEnd.Equal(end) {
		t.Errorf("Unexpected planned dates: %+v", wo)
	}

	var transErr *StatusTransitionError
	if _, err := f.svc.Reschedule(ctx, "wo-2", &start, nil); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on completed reschedule, got %v", err)
	}
}

func TestWorkOrderReassignWorkCenter(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedStatusWO("wo-1", entity.WOStatusPlanned)
	f.woStore.CreateLines(ctx, []entity.WorkOrderLine{
		{ID: "l1", WorkOrderID: "wo-1", LineNumber: 1, LineType: entity.WOLineTypeOperation, WorkCenterID: "wc-1", OperationNo: 10},
		{ID: "l2", WorkOrderID: "wo-1", LineNumber: 2, LineType: entity.WOLineTypeOperation, WorkCenterID: "wc-1", OperationNo: 20, Completed: true},
		{ID: "l3", WorkOrderID: "wo-1", LineNumber: 3, LineType: entity.WOLineTypeOperation, WorkCenterID: "wc-2", OperationNo: 30},
	})

	moved, err := f.svc.ReassignWorkCenter(ctx, "wo-1", "wc-1", "wc-9")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	// 已完工工序与其他工作中心的工序不动
	if moved != 1 {
		t.Fatalf("Expected 1 moved operation, got %d", moved)
	}
	l1, _ := f.woStore.FindLineByID(ctx, "l1")
	l2, _ := f.woStore.FindLineByID(ctx, "l2")
	if l1.WorkCenterID != "wc-9" || l2.WorkCenterID != "wc-1" {
		t.Errorf("Unexpected line assignment: %s %s", l1.WorkCenterID, l2.WorkCenterID)
	}
}

func TestWorkOrderIssueMaterial(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedStatusWO("wo-1", entity.WOStatusReleased)
	f.seedStatusWO("wo-2", entity.WOStatusPlanned)
	f.woStore.CreateLines(ctx, []entity.WorkOrderLine{
		{ID: "m1", WorkOrderID: "wo-1", LineNumber: 1, LineType: entity.WOLineTypeMaterial, ComponentID: "prod-b", PlannedQty: 25},
		{ID: "o1", WorkOrderID: "wo-1", LineNumber: 2, LineType: entity.WOLineTypeOperation, WorkCenterID: "wc-1"},
	})

	line, err := f.svc.IssueMaterial(ctx, "wo-1", "m1", 10)
	if err != nil {
		t.Fatalf("issue material: %v", err)
	}
	if line.IssuedQty != 10 {
		t.Errorf("Expected issued 10, got %v", line.IssuedQty)
	}
	line, _ = f.svc.IssueMaterial(ctx, "wo-1", "m1", 5)
	if line.IssuedQty != 15 {
		t.Errorf("Expected cumulative issue 15, got %v", line.IssuedQty)
	}

	if _, err := f.svc.IssueMaterial(ctx, "wo-1", "m1", 0); err == nil {
		t.Fatal("Expected quantity error, got nil")
	}
	if _, err := f.svc.IssueMaterial(ctx, "wo-1", "o1", 5); err == nil || !strings.Contains(err.Error(), "物料行不属于该工单") {
		t.Fatalf("Expected wrong line type error, got %v", err)
	}
	var transErr *StatusTransitionError
	if _, err := f.svc.IssueMaterial(ctx, "wo-2", "m1", 5); !errors.As(err, &transErr) {
		t.Fatalf("Expected StatusTransitionError on planned issue, got %v", err)
	}
}

func TestWorkOrderReportOperation(t *testing.T) {
	f := newWorkOrderTest()
	ctx := context.Background()
	f.seedStatusWO("wo-1", entity.WOStatusReleased)
	f.woStore.CreateLines(ctx, []entity.WorkOrderLine{
		{ID: "o1", WorkOrderID: "wo-1", LineNumber: 1, LineType: entity.WOLineTypeOperation, WorkCenterID: "wc-1", PlannedSetupHours: 0.5, PlannedRunHours: 1},
	})

	line, err := f.svc.ReportOperation(ctx, "wo-1", "o1", 0.5, 0.6, false)
	if err != nil {
		t.Fatalf("report operation: %v", err)
	}
	if line.ActualSetupHours != 0.5 || line.ActualRunHours != 0.6 || line.Completed {
		t.Errorf("Unexpected line after first report: %+v", line)
	}
	// 首次工序报工自动开工
	wo, _ := f.woStore.FindByID(ctx, "wo-1")
	if wo.Status != entity.WOStatusInProgress || wo.ActualStart == nil {
		t.Errorf("Expected auto-started work order, got %+v", wo)
	}

	line, err = f.svc.ReportOperation(ctx, "wo-1", "o1", 0, 0.4, true)
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if math.Abs(line.ActualRunHours-1.0) > 1e-9 || !line.Completed {
		t.Errorf("Unexpected line after completion: %+v", line)
	}
}
