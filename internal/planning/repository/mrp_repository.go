package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
)

type MRPRepository struct {
	db *gorm.DB
}

func NewMRPRepository(db *gorm.DB) *MRPRepository {
	return &MRPRepository{db: db}
}

// CreateRun 创建运行记录
func (r *MRPRepository) CreateRun(ctx context.Context, run *entity.MRPRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// UpdateRun 更新运行记录
func (r *MRPRepository) UpdateRun(ctx context.Context, run *entity.MRPRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// FindRunByID 根据ID查找运行记录
func (r *MRPRepository) FindRunByID(ctx context.Context, id string) (*entity.MRPRun, error) {
	var run entity.MRPRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// FindRuns 获取产品最近的运行记录
func (r *MRPRepository) FindRuns(ctx context.Context, productID string, limit int) ([]entity.MRPRun, error) {
	var runs []entity.MRPRun
	query := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// CreateRequirements 批量保存需求快照
func (r *MRPRepository) CreateRequirements(ctx context.Context, reqs []entity.MRPRequirement) error {
	return r.db.WithContext(ctx).CreateInBatches(reqs, 200).Error
}

// CreatePlannedOrders 批量保存计划订单
func (r *MRPRepository) CreatePlannedOrders(ctx context.Context, orders []entity.PlannedOrder) error {
	return r.db.WithContext(ctx).CreateInBatches(orders, 200).Error
}

// FindRequirements 获取运行的需求快照
func (r *MRPRepository) FindRequirements(ctx context.Context, runID string) ([]entity.MRPRequirement, error) {
	var reqs []entity.MRPRequirement
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("bom_level, required_date").
		Find(&reqs).Error
	return reqs, err
}

// FindPlannedOrders 获取运行的计划订单
func (r *MRPRepository) FindPlannedOrders(ctx context.Context, runID string) ([]entity.PlannedOrder, error) {
	var orders []entity.PlannedOrder
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("bom_level, start_date").
		Find(&orders).Error
	return orders, err
}

// UpdatePlannedOrder 更新计划订单
func (r *MRPRepository) UpdatePlannedOrder(ctx context.Context, order *entity.PlannedOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// FindByDateRange 查询开工日落在时间窗内的计划订单（产能负荷用）
func (r *MRPRepository) FindByDateRange(ctx context.Context, from, to time.Time) ([]entity.PlannedOrder, error) {
	var orders []entity.PlannedOrder
	err := r.db.WithContext(ctx).
		Where("start_date >= ? AND start_date < ?", from, to).
		Order("start_date").
		Find(&orders).Error
	return orders, err
}
