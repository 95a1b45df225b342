package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/testutil"
)

func TestMRPExportRunWorkbook(t *testing.T) {
	f := newMRPTest()
	ctx := context.Background()

	f.addProduct("prod-fan", "FAN-100", 5, 2)
	f.inventory.Set("prod-fan", 10)
	f.demands.Add(&entity.Demand{
		ID: "dem-1", ProductID: "prod-fan", Quantity: 15,
		DueDate: testutil.Date(2026, 3, 30), SourceType: entity.DemandSourceSales,
	})

	run, _, err := f.svc.Run(ctx, &MRPInput{ProductID: "prod-fan", Horizon: marchHorizon(), LotSizing: LotForLot}, "planner")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	workbook, err := f.svc.ExportRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("export run: %v", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "需求明细" || sheets[1] != "计划订单" {
		t.Fatalf("Unexpected sheets: %v", sheets)
	}

	header, _ := workbook.GetCellValue("需求明细", "A1")
	if header != "产品ID" {
		t.Errorf("Unexpected header: %s", header)
	}
	productCell, _ := workbook.GetCellValue("需求明细", "A2")
	if productCell != "prod-fan" {
		t.Errorf("Expected requirement row for prod-fan, got %s", productCell)
	}
	netCell, _ := workbook.GetCellValue("需求明细", "E2")
	if netCell != "7" {
		t.Errorf("Expected net requirement 7, got %s", netCell)
	}
	qtyCell, _ := workbook.GetCellValue("计划订单", "B2")
	if qtyCell != "7" {
		t.Errorf("Expected order quantity 7, got %s", qtyCell)
	}

	if _, err := f.svc.ExportRun(ctx, "run-missing"); err == nil {
		t.Fatal("Expected error for unknown run, got nil")
	}
}
