package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
)

type RoutingRepository struct {
	db *gorm.DB
}

func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

// Create 创建工艺路线
func (r *RoutingRepository) Create(ctx context.Context, routing *entity.Routing) error {
	return r.db.WithContext(ctx).Create(routing).Error
}

// Update 更新工艺路线
func (r *RoutingRepository) Update(ctx context.Context, routing *entity.Routing) error {
	return r.db.WithContext(ctx).Save(routing).Error
}

// FindByID 根据ID查找工艺路线（含工序）
func (r *RoutingRepository) FindByID(ctx context.Context, id string) (*entity.Routing, error) {
	var routing entity.Routing
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("operation_no") }).
		First(&routing, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &routing, nil
}

// FindVersions 获取产品的所有工艺路线版本
func (r *RoutingRepository) FindVersions(ctx context.Context, productID string) ([]entity.Routing, error) {
	var routings []entity.Routing
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&routings).Error
	return routings, err
}

// FindEffective 获取产品在指定日期生效的工艺路线
func (r *RoutingRepository) FindEffective(ctx context.Context, productID string, asOf time.Time) (*entity.Routing, error) {
	var routing entity.Routing
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("operation_no") }).
		Where("product_id = ? AND status = ?", productID, entity.RoutingStatusReleased).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("effective_from DESC").
		First(&routing).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &routing, nil
}

// CreateOperation 创建工序
func (r *RoutingRepository) CreateOperation(ctx context.Context, op *entity.RoutingOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

// UpdateOperation 更新工序
func (r *RoutingRepository) UpdateOperation(ctx context.Context, op *entity.RoutingOperation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

// DeleteOperation 删除工序
func (r *RoutingRepository) DeleteOperation(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.RoutingOperation{}, "id = ?", id).Error
}

// FindOperationByID 根据ID查找工序
func (r *RoutingRepository) FindOperationByID(ctx context.Context, id string) (*entity.RoutingOperation, error) {
	var op entity.RoutingOperation
	if err := r.db.WithContext(ctx).First(&op, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}
