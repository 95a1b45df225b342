package service

import (
	"math"
	"testing"
)

func TestApplyLotSizingLotForLot(t *testing.T) {
	qty, err := ApplyLotSizing(LotForLot, 37.5, LotSizingParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 37.5 {
		t.Errorf("Expected 37.5, got %v", qty)
	}

	// 空策略等同按需订货
	qty, err = ApplyLotSizing("", 12, LotSizingParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 12 {
		t.Errorf("Expected 12, got %v", qty)
	}
}

func TestApplyLotSizingZeroNetRequirement(t *testing.T) {
	for _, strategy := range []string{LotForLot, FixedOrderQty, EconomicOrderQty, PeriodOrderQty, LeastUnitCost} {
		qty, err := ApplyLotSizing(strategy, 0, LotSizingParams{FixedQuantity: 100})
		if err != nil {
			t.Fatalf("strategy %s: unexpected error: %v", strategy, err)
		}
		if qty != 0 {
			t.Errorf("strategy %s: expected 0 for zero net requirement, got %v", strategy, qty)
		}
	}
}

func TestApplyLotSizingFixedOrderQty(t *testing.T) {
	// 固定批量大于净需求时取批量
	qty, err := ApplyLotSizing(FixedOrderQty, 30, LotSizingParams{FixedQuantity: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 50 {
		t.Errorf("Expected 50, got %v", qty)
	}

	// 净需求超过固定批量时不得截断
	qty, _ = ApplyLotSizing(FixedOrderQty, 80, LotSizingParams{FixedQuantity: 50})
	if qty != 80 {
		t.Errorf("Expected 80, got %v", qty)
	}
}

func TestApplyLotSizingEconomicOrderQty(t *testing.T) {
	// EOQ = sqrt(2*1200*100/10) ≈ 154.92
	p := LotSizingParams{AnnualDemand: 1200, OrderingCost: 100, HoldingCost: 10}
	qty, err := ApplyLotSizing(EconomicOrderQty, 50, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := math.Sqrt(2 * 1200 * 100 / 10)
	if math.Abs(qty-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, qty)
	}

	// 净需求超过EOQ时取净需求
	qty, _ = ApplyLotSizing(EconomicOrderQty, 200, p)
	if qty != 200 {
		t.Errorf("Expected 200, got %v", qty)
	}

	// 持有成本非正时退化为按需
	qty, _ = ApplyLotSizing(EconomicOrderQty, 50, LotSizingParams{AnnualDemand: 1200, OrderingCost: 100})
	if qty != 50 {
		t.Errorf("Expected 50 when holding cost missing, got %v", qty)
	}
}

func TestApplyLotSizingPeriodOrderQty(t *testing.T) {
	qty, err := ApplyLotSizing(PeriodOrderQty, 40, LotSizingParams{Periods: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 120 {
		t.Errorf("Expected 120, got %v", qty)
	}

	// 期数缺省按1期
	qty, _ = ApplyLotSizing(PeriodOrderQty, 40, LotSizingParams{})
	if qty != 40 {
		t.Errorf("Expected 40, got %v", qty)
	}
}

func TestApplyLotSizingLeastUnitCost(t *testing.T) {
	p := LotSizingParams{AnnualDemand: 600, OrderingCost: 50, HoldingCostRate: 0.3}
	qty, err := ApplyLotSizing(LeastUnitCost, 20, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := math.Sqrt(2 * 600 * 50 / 0.3)
	if math.Abs(qty-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, qty)
	}

	// 费率非正时退化为净需求
	qty, _ = ApplyLotSizing(LeastUnitCost, 20, LotSizingParams{AnnualDemand: 600, OrderingCost: 50})
	if qty != 20 {
		t.Errorf("Expected 20 when holding cost rate missing, got %v", qty)
	}
}

func TestApplyLotSizingUnknownStrategy(t *testing.T) {
	if _, err := ApplyLotSizing("moving_average", 10, LotSizingParams{}); err == nil {
		t.Fatal("Expected error for unknown strategy, got nil")
	}
}
