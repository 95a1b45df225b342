package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DemandStore 需求持久化契约
type DemandStore interface {
	Create(ctx context.Context, demand *entity.Demand) error
	Update(ctx context.Context, demand *entity.Demand) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Demand, error)
	FindDueWithin(ctx context.Context, productID string, from, to time.Time) ([]entity.Demand, error)
}

// ReceiptStore 计划入库持久化契约
type ReceiptStore interface {
	Create(ctx context.Context, receipt *entity.ScheduledReceipt) error
	Delete(ctx context.Context, id string) error
	FindDueWithin(ctx context.Context, productID string, from, to time.Time) ([]entity.ScheduledReceipt, error)
}

// ProductLookup 需求域用到的产品查询
type ProductLookup interface {
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindByCode(ctx context.Context, code string) (*entity.Product, error)
}

type DemandService struct {
	store    DemandStore
	receipts ReceiptStore
	products ProductLookup
	logger   *zap.Logger
}

func NewDemandService(store DemandStore, receipts ReceiptStore, products ProductLookup, logger *zap.Logger) *DemandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandService{store: store, receipts: receipts, products: products, logger: logger}
}

// CreateDemandInput 创建需求请求
type CreateDemandInput struct {
	ProductID  string    `json:"product_id" binding:"required"`
	Quantity   float64   `json:"quantity" binding:"required,gt=0"`
	DueDate    time.Time `json:"due_date" binding:"required"`
	SourceType string    `json:"source_type" binding:"required"`
	SourceID   string    `json:"source_id"`
	Notes      string    `json:"notes"`
}

// Create 创建独立需求
func (s *DemandService) Create(ctx context.Context, input *CreateDemandInput, createdBy string) (*entity.Demand, error) {
	if input.SourceType != entity.DemandSourceSales && input.SourceType != entity.DemandSourceForecast {
		return nil, fmt.Errorf("需求来源必须是 sales 或 forecast")
	}
	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("产品不存在: %w", err)
	}

	now := time.Now()
	demand := &entity.Demand{
		ID:         uuid.New().String()[:32],
		ProductID:  input.ProductID,
		Quantity:   input.Quantity,
		DueDate:    input.DueDate,
		SourceType: input.SourceType,
		SourceID:   input.SourceID,
		Notes:      input.Notes,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, demand); err != nil {
		return nil, fmt.Errorf("create demand: %w", err)
	}
	return demand, nil
}

// Get 获取需求
func (s *DemandService) Get(ctx context.Context, id string) (*entity.Demand, error) {
	return s.store.FindByID(ctx, id)
}

// List 查询产品在时间窗内的需求
func (s *DemandService) List(ctx context.Context, productID string, from, to time.Time) ([]entity.Demand, error) {
	return s.store.FindDueWithin(ctx, productID, from, to)
}

// Delete 删除需求
func (s *DemandService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return fmt.Errorf("demand not found: %w", err)
	}
	return s.store.Delete(ctx, id)
}

// AddReceipt 登记计划入库
func (s *DemandService) AddReceipt(ctx context.Context, productID string, qty float64, dueDate time.Time, sourceType, sourceID string) (*entity.ScheduledReceipt, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("入库数量必须大于0")
	}
	if sourceType != entity.ReceiptSourcePurchaseOrder && sourceType != entity.ReceiptSourceWorkOrder {
		return nil, fmt.Errorf("在途来源必须是 purchase_order 或 work_order")
	}
	receipt := &entity.ScheduledReceipt{
		ID:         uuid.New().String()[:32],
		ProductID:  productID,
		Quantity:   qty,
		DueDate:    dueDate,
		SourceType: sourceType,
		SourceID:   sourceID,
		CreatedAt:  time.Now(),
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create scheduled receipt: %w", err)
	}
	return receipt, nil
}

// RemoveReceipt 删除计划入库
func (s *DemandService) RemoveReceipt(ctx context.Context, id string) error {
	return s.receipts.Delete(ctx, id)
}

// ListReceipts 查询产品在时间窗内的计划入库
func (s *DemandService) ListReceipts(ctx context.Context, productID string, from, to time.Time) ([]entity.ScheduledReceipt, error) {
	return s.receipts.FindDueWithin(ctx, productID, from, to)
}

// ImportResult 预测导入结果
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportForecastCSV 导入预测需求CSV（GBK编码，国内ERP导出的常见格式）
// 列：产品编码,数量,需求日期(2006-01-02)
func (s *DemandService) ImportForecastCSV(ctx context.Context, r io.Reader, createdBy string) (*ImportResult, error) {
	reader := csv.NewReader(transform.NewReader(r, simplifiedchinese.GBK.NewDecoder()))
	reader.FieldsPerRecord = -1

	result := &ImportResult{}
	rowNo := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rowNo++
		if rowNo == 1 && !isNumeric(strings.TrimSpace(recordField(record, 1))) {
			continue // 表头行
		}
		if len(record) < 3 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行列数不足", rowNo))
			continue
		}

		code := strings.TrimSpace(record[0])
		qty, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil || qty <= 0 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行数量无效", rowNo))
			continue
		}
		dueDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(record[2]), time.Local)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行日期无效", rowNo))
			continue
		}
		product, err := s.products.FindByCode(ctx, code)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行产品编码 %s 不存在", rowNo, code))
			continue
		}

		if _, err := s.Create(ctx, &CreateDemandInput{
			ProductID:  product.ID,
			Quantity:   qty,
			DueDate:    dueDate,
			SourceType: entity.DemandSourceForecast,
			SourceID:   fmt.Sprintf("import-row-%d", rowNo),
		}, createdBy); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行保存失败: %v", rowNo, err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("预测需求导入完成",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func recordField(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
