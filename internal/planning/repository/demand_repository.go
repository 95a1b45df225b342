package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
)

type DemandRepository struct {
	db *gorm.DB
}

func NewDemandRepository(db *gorm.DB) *DemandRepository {
	return &DemandRepository{db: db}
}

// Create 创建需求
func (r *DemandRepository) Create(ctx context.Context, demand *entity.Demand) error {
	return r.db.WithContext(ctx).Create(demand).Error
}

// Update 更新需求
func (r *DemandRepository) Update(ctx context.Context, demand *entity.Demand) error {
	return r.db.WithContext(ctx).Save(demand).Error
}

// Delete 删除需求
func (r *DemandRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Demand{}, "id = ?", id).Error
}

// FindByID 根据ID查找需求
func (r *DemandRepository) FindByID(ctx context.Context, id string) (*entity.Demand, error) {
	var demand entity.Demand
	if err := r.db.WithContext(ctx).First(&demand, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &demand, nil
}

// FindDueWithin 查询产品在时间窗内到期的需求
func (r *DemandRepository) FindDueWithin(ctx context.Context, productID string, from, to time.Time) ([]entity.Demand, error) {
	var demands []entity.Demand
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND due_date >= ? AND due_date < ?", productID, from, to).
		Order("due_date").
		Find(&demands).Error
	return demands, err
}

type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create 登记计划入库
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.ScheduledReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

// Delete 删除计划入库
func (r *ReceiptRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.ScheduledReceipt{}, "id = ?", id).Error
}

// FindDueWithin 查询产品在时间窗内到期的计划入库
func (r *ReceiptRepository) FindDueWithin(ctx context.Context, productID string, from, to time.Time) ([]entity.ScheduledReceipt, error) {
	var receipts []entity.ScheduledReceipt
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND due_date >= ? AND due_date < ?", productID, from, to).
		Order("due_date").
		Find(&receipts).Error
	return receipts, err
}
