package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/testutil"
)

func newRoutingTest() (*testutil.MemoryRoutingStore, *testutil.MemoryWorkCenterStore, *RoutingService) {
	store := testutil.NewMemoryRoutingStore()
	wcStore := testutil.NewMemoryWorkCenterStore()
	return store, wcStore, NewRoutingService(store, wcStore)
}

func seedWorkCenter(store *testutil.MemoryWorkCenterStore, id string, labor, machine, overhead float64) {
	store.Add(&entity.WorkCenter{
		ID: id, Code: "WC-" + id, Name: "测试工作中心",
		HoursPerDay: 8, Efficiency: 1, CapacityUnits: 1, WorkingDays: "1,2,3,4,5", ShiftHours: 8,
		LaborRatePerHour: labor, MachineRatePerHour: machine, OverheadRatePerHour: overhead,
		Status: entity.WorkCenterStatusActive,
	})
}

// seedRouting 直接塞入一个自since起生效的已发布工艺路线
func seedRouting(store *testutil.MemoryRoutingStore, id, productID string, since time.Time, ops ...entity.RoutingOperation) {
	now := time.Now()
	for i := range ops {
		ops[i].RoutingID = id
		if ops[i].ID == "" {
			ops[i].ID = id + "-op" + string(rune('1'+i))
		}
		ops[i].EffectiveFrom = since
	}
	store.Create(context.Background(), &entity.Routing{
		ID:            id,
		ProductID:     productID,
		Version:       "v1.0",
		Status:        entity.RoutingStatusReleased,
		EffectiveFrom: since,
		CreatedBy:     "tester",
		CreatedAt:     now,
		UpdatedAt:     now,
		Operations:    ops,
	})
}

func TestRoutingLeadTimeWithOverlap(t *testing.T) {
	store, _, svc := newRoutingTest()
	ctx := context.Background()

	// 工序10与20重叠50%：后道工时按 1-0.5 扣减
	seedRouting(store, "rt-pump", "prod-pump", time.Now().Add(-time.Hour),
		entity.RoutingOperation{OperationNo: 10, WorkCenterID: "wc-1", SetupMinutes: 30, RunMinutesPerUnit: 6, OverlapFactor: 0.5},
		entity.RoutingOperation{OperationNo: 20, WorkCenterID: "wc-2", RunMinutesPerUnit: 3},
	)

	// qty=10: 工序10 = 30+60 = 90分钟；工序20 = (0+30)×0.5 = 15分钟
	hours, err := svc.LeadTimeHours(ctx, "rt-pump", 10)
	if err != nil {
		t.Fatalf("lead time: %v", err)
	}
	if math.Abs(hours-1.75) > 1e-9 {
		t.Errorf("Expected 1.75 hours, got %v", hours)
	}
}

func TestRoutingLeadTimeNoOverlap(t *testing.T) {
	store, _, svc := newRoutingTest()
	ctx := context.Background()

	seedRouting(store, "rt-plain", "prod-plain", time.Now().Add(-time.Hour),
		entity.RoutingOperation{OperationNo: 10, WorkCenterID: "wc-1", SetupMinutes: 60, RunMinutesPerUnit: 12},
		entity.RoutingOperation{OperationNo: 20, WorkCenterID: "wc-2", SetupMinutes: 30, RunMinutesPerUnit: 6},
	)

	// qty=5: 60+60 + 30+30 = 180分钟
	hours, err := svc.LeadTimeHours(ctx, "rt-plain", 5)
	if err != nil {
		t.Fatalf("lead time: %v", err)
	}
	if math.Abs(hours-3) > 1e-9 {
		t.Errorf("Expected 3 hours, got %v", hours)
	}
}

func TestRoutingCalculateCost(t *testing.T) {
	store, wcStore, svc := newRoutingTest()
	ctx := context.Background()

	seedWorkCenter(wcStore, "wc-mill", 60, 30, 10)
	seedRouting(store, "rt-pump", "prod-pump", time.Now().Add(-time.Hour),
		entity.RoutingOperation{OperationNo: 10, WorkCenterID: "wc-mill", SetupMinutes: 30, RunMinutesPerUnit: 3},
		entity.RoutingOperation{OperationNo: 20, WorkCenterID: "wc-ext", Subcontract: true, SubcontractCost: 5},
	)

	// qty=10: 工序10 = 60分钟 = 1小时；委外工序按单件费用计
	cost, err := svc.CalculateCost(ctx, "rt-pump", 10)
	if err != nil {
		t.Fatalf("calculate cost: %v", err)
	}
	if math.Abs(cost.LaborCost-60) > 1e-9 || math.Abs(cost.MachineCost-30) > 1e-9 || math.Abs(cost.OverheadCost-10) > 1e-9 {
		t.Errorf("Unexpected rate costs: %+v", cost)
	}
	if math.Abs(cost.SubcontractCost-50) > 1e-9 {
		t.Errorf("Expected subcontract cost 50, got %v", cost.SubcontractCost)
	}
	if math.Abs(cost.TotalCost-150) > 1e-9 {
		t.Errorf("Expected total 150, got %v", cost.TotalCost)
	}
	if cost.RatesMissing {
		t.Error("Expected rates present")
	}
}

func TestRoutingCostFlagsMissingRates(t *testing.T) {
	store, wcStore, svc := newRoutingTest()
	ctx := context.Background()

	seedWorkCenter(wcStore, "wc-free", 0, 0, 0)
	seedRouting(store, "rt-x", "prod-x", time.Now().Add(-time.Hour),
		entity.RoutingOperation{OperationNo: 10, WorkCenterID: "wc-free", SetupMinutes: 30})

	cost, err := svc.CalculateCost(ctx, "rt-x", 1)
	if err != nil {
		t.Fatalf("calculate cost: %v", err)
	}
	if !cost.RatesMissing {
		t.Error("Expected rates-missing flag when all work center rates are zero")
	}
	if cost.TotalCost != 0 {
		t.Errorf("Expected zero total, got %v", cost.TotalCost)
	}
}

func TestRoutingAddOperationRules(t *testing.T) {
	_, wcStore, svc := newRoutingTest()
	ctx := context.Background()
	seedWorkCenter(wcStore, "wc-1", 0, 0, 0)

	routing, err := svc.Create(ctx, &CreateRoutingInput{ProductID: "prod-pump"}, "tester")
	if err != nil {
		t.Fatalf("create routing: %v", err)
	}
	if routing.Version != "v1.0" || routing.Status != entity.RoutingStatusDraft {
		t.Errorf("Unexpected routing defaults: %+v", routing)
	}

	if _, err := svc.AddOperation(ctx, routing.ID, &OperationInput{OperationNo: 10, WorkCenterID: "wc-1", SetupMinutes: 30}); err != nil {
		t.Fatalf("add operation: %v", err)
	}

	// 工序号重复
	if _, err := svc.AddOperation(ctx, routing.ID, &OperationInput{OperationNo: 10, WorkCenterID: "wc-1"}); err == nil {
		t.Fatal("Expected duplicate operation number error, got nil")
	}
	// 重叠比例越界
	if _, err := svc.AddOperation(ctx, routing.ID, &OperationInput{OperationNo: 20, WorkCenterID: "wc-1", OverlapFactor: 1}); err == nil {
		t.Fatal("Expected overlap factor error, got nil")
	}
	// 工作中心不存在
	if _, err := svc.AddOperation(ctx, routing.ID, &OperationInput{OperationNo: 20, WorkCenterID: "wc-missing"}); err == nil {
		t.Fatal("Expected unknown work center error, got nil")
	}

	// 发布后锁定
	if _, err := svc.Release(ctx, routing.ID, "tester"); err != nil {
		t.Fatalf("release routing: %v", err)
	}
	var verErr *InvalidVersionError
	if _, err := svc.AddOperation(ctx, routing.ID, &OperationInput{OperationNo: 30, WorkCenterID: "wc-1"}); !errors.As(err, &verErr) {
		t.Fatalf("Expected InvalidVersionError on released routing, got %v", err)
	}
}

func TestRoutingReleaseClosesPredecessor(t *testing.T) {
	store, wcStore, svc := newRoutingTest()
	ctx := context.Background()
	seedWorkCenter(wcStore, "wc-1", 0, 0, 0)

	v1, _ := svc.Create(ctx, &CreateRoutingInput{ProductID: "prod-pump"}, "tester")
	svc.AddOperation(ctx, v1.ID, &OperationInput{OperationNo: 10, WorkCenterID: "wc-1"})
	if _, err := svc.Release(ctx, v1.ID, "tester"); err != nil {
		t.Fatalf("release v1: %v", err)
	}

	v2, err := svc.NewVersion(ctx, v1.ID, "v2.0", "tester")
	if err != nil {
		t.Fatalf("new version: %v", err)
	}
	if len(v2.Operations) != 1 {
		t.Fatalf("Expected cloned operations, got %d", len(v2.Operations))
	}
	if _, err := svc.Release(ctx, v2.ID, "tester"); err != nil {
		t.Fatalf("release v2: %v", err)
	}

	closed, _ := store.FindByID(ctx, v1.ID)
	if closed.EffectiveTo == nil {
		t.Fatal("Expected predecessor effective-to to be closed")
	}
	effective, err := svc.GetEffective(ctx, "prod-pump", time.Now())
	if err != nil {
		t.Fatalf("get effective: %v", err)
	}
	if effective.ID != v2.ID {
		t.Errorf("Expected v2 effective, got %s", effective.Version)
	}
}
