package service

import (
	"fmt"
	"math"
)

// LotSizingStrategy 批量策略
const (
	LotForLot        = "lot_for_lot"
	FixedOrderQty    = "fixed_order_quantity"
	EconomicOrderQty = "economic_order_quantity"
	PeriodOrderQty   = "period_order_quantity"
	LeastUnitCost    = "least_unit_cost"
)

// LotSizingParams 批量策略参数，按策略取用
type LotSizingParams struct {
	FixedQuantity   float64 `json:"fixed_quantity"`
	AnnualDemand    float64 `json:"annual_demand"`
	OrderingCost    float64 `json:"ordering_cost"`
	HoldingCost     float64 `json:"holding_cost"`      // EOQ: 单件年持有成本（绝对值）
	HoldingCostRate float64 `json:"holding_cost_rate"` // LUC: 持有成本率
	Periods         int     `json:"periods"`           // POQ: 合并期数
}

// ApplyLotSizing 将净需求转换为订单数量
// 除lot_for_lot外，所有策略的结果均不小于净需求
func ApplyLotSizing(strategy string, netRequirement float64, p LotSizingParams) (float64, error) {
	if netRequirement <= 0 {
		return 0, nil
	}
	switch strategy {
	case LotForLot, "":
		return netRequirement, nil

	case FixedOrderQty:
		return math.Max(netRequirement, p.FixedQuantity), nil

	case EconomicOrderQty:
		if p.HoldingCost <= 0 {
			return netRequirement, nil
		}
		eoq := math.Sqrt(2 * p.AnnualDemand * p.OrderingCost / p.HoldingCost)
		return math.Max(netRequirement, eoq), nil

	case PeriodOrderQty:
		periods := p.Periods
		if periods < 1 {
			periods = 1
		}
		return netRequirement * float64(periods), nil

	case LeastUnitCost:
		// 用持有成本率代替绝对持有成本的EOQ变体；费率非正时退化为净需求
		if p.HoldingCostRate <= 0 {
			return netRequirement, nil
		}
		lot := math.Sqrt(2 * p.AnnualDemand * p.OrderingCost / p.HoldingCostRate)
		return math.Max(netRequirement, lot), nil

	default:
		return 0, fmt.Errorf("未知的批量策略: %s", strategy)
	}
}
