package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportRun 导出MRP运行结果为Excel工作簿：需求明细 + 计划订单两个Sheet
func (s *MRPService) ExportRun(ctx context.Context, runID string) (*excelize.File, error) {
	run, err := s.runs.FindRunByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mrp run not found: %w", err)
	}
	result, err := s.GetRunResult(ctx, runID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	reqSheet := "需求明细"
	f.SetSheetName("Sheet1", reqSheet)
	reqHeaders := []string{"产品ID", "上级产品", "BOM层级", "毛需求", "净需求", "需求日期", "下单日期", "现有库存", "在途数量", "安全库存"}
	for i, h := range reqHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(reqSheet, cell, h)
	}
	for row, req := range result.Requirements {
		values := []interface{}{
			req.ProductID, req.ParentProductID, req.BOMLevel,
			req.GrossRequirement, req.NetRequirement,
			req.RequiredDate.Format("2006-01-02"), req.OrderDate.Format("2006-01-02"),
			req.OnHand, req.ScheduledReceipts, req.SafetyStock,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(reqSheet, cell, v)
		}
	}

	orderSheet := "计划订单"
	f.NewSheet(orderSheet)
	orderHeaders := []string{"产品ID", "订单数量", "批量化前净需求", "开工日期", "完工日期", "订单类型", "BOM层级", "批量策略", "已下达"}
	for i, h := range orderHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(orderSheet, cell, h)
	}
	for row, order := range result.PlannedOrders {
		values := []interface{}{
			order.ProductID, order.Quantity, order.OriginalQty,
			order.StartDate.Format("2006-01-02"), order.DueDate.Format("2006-01-02"),
			order.OrderType, order.BOMLevel, order.LotSizing, order.Applied,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(orderSheet, cell, v)
		}
	}

	f.SetDocProps(&excelize.DocProperties{Title: run.RunCode})
	return f, nil
}
