package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// Create 创建工单
func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

// Update 更新工单
func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

// FindByID 根据ID查找工单（含行）
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		First(&wo, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &wo, nil
}

// FindByCode 根据编号查找工单
func (r *WorkOrderRepository) FindByCode(ctx context.Context, code string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		First(&wo, "code = ?", code).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &wo, nil
}

// FindByStatus 按状态查询工单
func (r *WorkOrderRepository) FindByStatus(ctx context.Context, statuses []string) ([]entity.WorkOrder, error) {
	var wos []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status IN ?", statuses).
		Order("planned_start").
		Find(&wos).Error
	return wos, err
}

// FindByWorkCenterAndDateRange 查询指定工作中心上计划开工日落在时间窗内的工单
func (r *WorkOrderRepository) FindByWorkCenterAndDateRange(ctx context.Context, workCenterID string, from, to time.Time, statuses []string) ([]entity.WorkOrder, error) {
	var wos []entity.WorkOrder
	sub := r.db.Model(&entity.WorkOrderLine{}).
		Select("work_order_id").
		Where("line_type = ? AND work_center_id = ?", entity.WOLineTypeOperation, workCenterID)
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Where("id IN (?)", sub).
		Where("status IN ?", statuses).
		Where("planned_start >= ? AND planned_start < ?", from, to).
		Order("planned_start").
		Find(&wos).Error
	return wos, err
}

// CreateLines 批量创建工单行
func (r *WorkOrderRepository) CreateLines(ctx context.Context, lines []entity.WorkOrderLine) error {
	return r.db.WithContext(ctx).Create(&lines).Error
}

// UpdateLine 更新工单行
func (r *WorkOrderRepository) UpdateLine(ctx context.Context, line *entity.WorkOrderLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteLines 删除工单的全部行
func (r *WorkOrderRepository) DeleteLines(ctx context.Context, workOrderID string) error {
	return r.db.WithContext(ctx).Delete(&entity.WorkOrderLine{}, "work_order_id = ?", workOrderID).Error
}

// FindLineByID 根据ID查找工单行
func (r *WorkOrderRepository) FindLineByID(ctx context.Context, id string) (*entity.WorkOrderLine, error) {
	var line entity.WorkOrderLine
	if err := r.db.WithContext(ctx).First(&line, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}
