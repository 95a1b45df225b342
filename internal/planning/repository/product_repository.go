package repository

import (
	"context"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create 创建产品
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update 更新产品
func (r *ProductRepository) Update(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// FindByID 根据ID查找产品
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindByCode 根据编码查找产品
func (r *ProductRepository) FindByCode(ctx context.Context, code string) (*entity.Product, error) {
	var product entity.Product
	if err := r.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindAll 获取所有产品
func (r *ProductRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := r.db.WithContext(ctx).Order("code").Find(&products).Error
	return products, err
}

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Upsert 按产品+仓库更新库存快照
func (r *InventoryRepository) Upsert(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "available_qty", "last_moved_at", "updated_at"}),
	}).Create(inv).Error
}

// FindByProduct 查找产品的全部库存快照
func (r *InventoryRepository) FindByProduct(ctx context.Context, productID string) ([]entity.Inventory, error) {
	var records []entity.Inventory
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&records).Error
	return records, err
}

// OnHand 产品全仓可用库存合计
func (r *InventoryRepository) OnHand(ctx context.Context, productID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&entity.Inventory{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(available_qty), 0)").
		Scan(&total).Error
	return total, err
}
