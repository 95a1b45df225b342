package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"gorm.io/gorm"
)

type WorkCenterRepository struct {
	db *gorm.DB
}

func NewWorkCenterRepository(db *gorm.DB) *WorkCenterRepository {
	return &WorkCenterRepository{db: db}
}

// Create 创建工作中心
func (r *WorkCenterRepository) Create(ctx context.Context, wc *entity.WorkCenter) error {
	return r.db.WithContext(ctx).Create(wc).Error
}

// Update 更新工作中心
func (r *WorkCenterRepository) Update(ctx context.Context, wc *entity.WorkCenter) error {
	return r.db.WithContext(ctx).Save(wc).Error
}

// FindByID 根据ID查找工作中心
func (r *WorkCenterRepository) FindByID(ctx context.Context, id string) (*entity.WorkCenter, error) {
	var wc entity.WorkCenter
	if err := r.db.WithContext(ctx).First(&wc, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &wc, nil
}

// FindByCode 根据编码查找工作中心
func (r *WorkCenterRepository) FindByCode(ctx context.Context, code string) (*entity.WorkCenter, error) {
	var wc entity.WorkCenter
	if err := r.db.WithContext(ctx).First(&wc, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &wc, nil
}

// FindAll 获取所有工作中心
func (r *WorkCenterRepository) FindAll(ctx context.Context) ([]entity.WorkCenter, error) {
	var wcs []entity.WorkCenter
	err := r.db.WithContext(ctx).Order("code").Find(&wcs).Error
	return wcs, err
}

// CreateClosure 登记停工日
func (r *WorkCenterRepository) CreateClosure(ctx context.Context, closure *entity.WorkCenterClosure) error {
	return r.db.WithContext(ctx).Create(closure).Error
}

// FindClosures 查询时间窗内的停工日
func (r *WorkCenterRepository) FindClosures(ctx context.Context, workCenterID string, from, to time.Time) ([]entity.WorkCenterClosure, error) {
	var closures []entity.WorkCenterClosure
	err := r.db.WithContext(ctx).
		Where("work_center_id = ? AND date >= ? AND date < ?", workCenterID, from, to).
		Find(&closures).Error
	return closures, err
}

// CreateOvertime 登记加班
func (r *WorkCenterRepository) CreateOvertime(ctx context.Context, overtime *entity.WorkCenterOvertime) error {
	return r.db.WithContext(ctx).Create(overtime).Error
}

// FindOvertimes 查询时间窗内的加班登记
func (r *WorkCenterRepository) FindOvertimes(ctx context.Context, workCenterID string, from, to time.Time) ([]entity.WorkCenterOvertime, error) {
	var overtimes []entity.WorkCenterOvertime
	err := r.db.WithContext(ctx).
		Where("work_center_id = ? AND date >= ? AND date < ?", workCenterID, from, to).
		Find(&overtimes).Error
	return overtimes, err
}
