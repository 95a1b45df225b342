package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/google/uuid"
)

// ProductStore 产品主数据持久化契约
type ProductStore interface {
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindByCode(ctx context.Context, code string) (*entity.Product, error)
	FindAll(ctx context.Context) ([]entity.Product, error)
}

// InventoryStore 库存快照持久化契约
type InventoryStore interface {
	Upsert(ctx context.Context, inv *entity.Inventory) error
	FindByProduct(ctx context.Context, productID string) ([]entity.Inventory, error)
}

type ProductService struct {
	store     ProductStore
	inventory InventoryStore
}

func NewProductService(store ProductStore, inventory InventoryStore) *ProductService {
	return &ProductService{store: store, inventory: inventory}
}

// CreateProductInput 创建产品请求
type CreateProductInput struct {
	Code          string  `json:"code" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Specification string  `json:"specification"`
	Unit          string  `json:"unit"`
	LeadTimeDays  int     `json:"lead_time_days"`
	SafetyStock   float64 `json:"safety_stock"`
	StandardCost  float64 `json:"standard_cost"`
}

// Create 创建产品，编码唯一
func (s *ProductService) Create(ctx context.Context, input *CreateProductInput, createdBy string) (*entity.Product, error) {
	if existing, err := s.store.FindByCode(ctx, input.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("产品编码 %s 已存在", input.Code)
	}
	if input.LeadTimeDays < 0 {
		return nil, fmt.Errorf("提前期不能为负")
	}
	if input.SafetyStock < 0 {
		return nil, fmt.Errorf("安全库存不能为负")
	}

	now := time.Now()
	unit := input.Unit
	if unit == "" {
		unit = "pcs"
	}
	product := &entity.Product{
		ID:            uuid.New().String()[:32],
		Code:          input.Code,
		Name:          input.Name,
		Specification: input.Specification,
		Unit:          unit,
		LeadTimeDays:  input.LeadTimeDays,
		SafetyStock:   input.SafetyStock,
		StandardCost:  input.StandardCost,
		Status:        entity.ProductStatusActive,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// Get 获取产品
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	return s.store.FindByID(ctx, id)
}

// GetByCode 按编码获取产品
func (s *ProductService) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	return s.store.FindByCode(ctx, code)
}

// List 获取所有产品
func (s *ProductService) List(ctx context.Context) ([]entity.Product, error) {
	return s.store.FindAll(ctx)
}

// Update 更新产品计划参数
func (s *ProductService) Update(ctx context.Context, id string, input *CreateProductInput) (*entity.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}
	if input.LeadTimeDays < 0 {
		return nil, fmt.Errorf("提前期不能为负")
	}
	if input.SafetyStock < 0 {
		return nil, fmt.Errorf("安全库存不能为负")
	}

	if input.Name != "" {
		product.Name = input.Name
	}
	if input.Specification != "" {
		product.Specification = input.Specification
	}
	if input.Unit != "" {
		product.Unit = input.Unit
	}
	product.LeadTimeDays = input.LeadTimeDays
	product.SafetyStock = input.SafetyStock
	product.StandardCost = input.StandardCost
	product.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

// Deactivate 停用产品
func (s *ProductService) Deactivate(ctx context.Context, id string) error {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("product not found: %w", err)
	}
	product.Status = entity.ProductStatusInactive
	product.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, product); err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	return nil
}

// SetInventory 设置产品库存快照
func (s *ProductService) SetInventory(ctx context.Context, productID, warehouseID string, qty float64) (*entity.Inventory, error) {
	if qty < 0 {
		return nil, fmt.Errorf("库存数量不能为负")
	}
	product, err := s.store.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}

	now := time.Now()
	inv := &entity.Inventory{
		ID:           uuid.New().String()[:32],
		ProductID:    productID,
		WarehouseID:  warehouseID,
		Quantity:     qty,
		AvailableQty: qty,
		Unit:         product.Unit,
		LastMovedAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.inventory.Upsert(ctx, inv); err != nil {
		return nil, fmt.Errorf("upsert inventory: %w", err)
	}
	return inv, nil
}

// OnHand 产品全仓现有可用库存合计
func (s *ProductService) OnHand(ctx context.Context, productID string) (float64, error) {
	records, err := s.inventory.FindByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("find inventory: %w", err)
	}
	var total float64
	for i := range records {
		total += records[i].AvailableQty
	}
	return total, nil
}
