package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
)

type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// Create 创建BOM
func (r *BOMRepository) Create(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

// Update 更新BOM
func (r *BOMRepository) Update(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Save(bom).Error
}

// FindByID 根据ID查找BOM（含行项）
func (r *BOMRepository) FindByID(ctx context.Context, id string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		First(&bom, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

// FindVersions 获取产品的所有BOM版本
func (r *BOMRepository) FindVersions(ctx context.Context, productID string) ([]entity.BOM, error) {
	var boms []entity.BOM
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&boms).Error
	return boms, err
}

// FindEffective 获取产品在指定日期生效的BOM
func (r *BOMRepository) FindEffective(ctx context.Context, productID string, asOf time.Time) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Where("product_id = ? AND status = ?", productID, entity.BOMStatusReleased).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("effective_from DESC").
		First(&bom).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

// FindWhereUsed 反查使用该组件的生效BOM
func (r *BOMRepository) FindWhereUsed(ctx context.Context, componentID string, asOf time.Time) ([]entity.BOM, error) {
	var boms []entity.BOM
	sub := r.db.Model(&entity.BOMLine{}).Select("bom_id").Where("component_id = ?", componentID)
	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Where("status = ?", entity.BOMStatusReleased).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Find(&boms).Error
	return boms, err
}

// CreateLine 创建BOM行项
func (r *BOMRepository) CreateLine(ctx context.Context, line *entity.BOMLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLine 更新BOM行项
func (r *BOMRepository) UpdateLine(ctx context.Context, line *entity.BOMLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteLine 删除BOM行项
func (r *BOMRepository) DeleteLine(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.BOMLine{}, "id = ?", id).Error
}

// FindLineByID 根据ID查找BOM行项
func (r *BOMRepository) FindLineByID(ctx context.Context, id string) (*entity.BOMLine, error) {
	var line entity.BOMLine
	if err := r.db.WithContext(ctx).First(&line, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}
