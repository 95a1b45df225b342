package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/google/uuid"
)

// validateWorkingDays 校验工作日历配置：逗号分隔的ISO星期（1=周一 .. 7=周日），
// 至少包含一个有效值
func validateWorkingDays(s string) error {
	valid := 0
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 7 {
			return fmt.Errorf("工作日配置 %s 无效，应为1-7的逗号分隔列表", s)
		}
		valid++
	}
	if valid == 0 {
		return fmt.Errorf("工作日配置 %s 无效，应为1-7的逗号分隔列表", s)
	}
	return nil
}

// WorkCenterStore 工作中心持久化契约
type WorkCenterStore interface {
	Create(ctx context.Context, wc *entity.WorkCenter) error
	Update(ctx context.Context, wc *entity.WorkCenter) error
	FindByID(ctx context.Context, id string) (*entity.WorkCenter, error)
	FindByCode(ctx context.Context, code string) (*entity.WorkCenter, error)
	FindAll(ctx context.Context) ([]entity.WorkCenter, error)
	CreateClosure(ctx context.Context, closure *entity.WorkCenterClosure) error
	FindClosures(ctx context.Context, workCenterID string, from, to time.Time) ([]entity.WorkCenterClosure, error)
	CreateOvertime(ctx context.Context, overtime *entity.WorkCenterOvertime) error
	FindOvertimes(ctx context.Context, workCenterID string, from, to time.Time) ([]entity.WorkCenterOvertime, error)
}

type WorkCenterService struct {
	store WorkCenterStore
}

func NewWorkCenterService(store WorkCenterStore) *WorkCenterService {
	return &WorkCenterService{store: store}
}

// CreateWorkCenterInput 创建工作中心请求
type CreateWorkCenterInput struct {
	Code                string  `json:"code" binding:"required"`
	Name                string  `json:"name" binding:"required"`
	Type                string  `json:"type"`
	HoursPerDay         float64 `json:"hours_per_day"`
	Efficiency          float64 `json:"efficiency"`
	CapacityUnits       int     `json:"capacity_units"`
	WorkingDays         string  `json:"working_days"`
	ShiftHours          float64 `json:"shift_hours"`
	OvertimeRatePerHour float64 `json:"overtime_rate_per_hour"`
	LaborRatePerHour    float64 `json:"labor_rate_per_hour"`
	MachineRatePerHour  float64 `json:"machine_rate_per_hour"`
	OverheadRatePerHour float64 `json:"overhead_rate_per_hour"`
	AlternateID         *string `json:"alternate_id"`
}

// Create 创建工作中心，编码唯一
func (s *WorkCenterService) Create(ctx context.Context, input *CreateWorkCenterInput, createdBy string) (*entity.WorkCenter, error) {
	if existing, err := s.store.FindByCode(ctx, input.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("工作中心编码 %s 已存在", input.Code)
	}
	if input.Efficiency < 0 || input.Efficiency > 1 {
		return nil, fmt.Errorf("效率必须在 [0, 1] 之间")
	}
	if input.WorkingDays != "" {
		if err := validateWorkingDays(input.WorkingDays); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	wc := &entity.WorkCenter{
		ID:                  uuid.New().String()[:32],
		Code:                input.Code,
		Name:                input.Name,
		Type:                input.Type,
		HoursPerDay:         input.HoursPerDay,
		Efficiency:          input.Efficiency,
		CapacityUnits:       input.CapacityUnits,
		WorkingDays:         input.WorkingDays,
		ShiftHours:          input.ShiftHours,
		OvertimeRatePerHour: input.OvertimeRatePerHour,
		LaborRatePerHour:    input.LaborRatePerHour,
		MachineRatePerHour:  input.MachineRatePerHour,
		OverheadRatePerHour: input.OverheadRatePerHour,
		AlternateID:         input.AlternateID,
		Status:              entity.WorkCenterStatusActive,
		CreatedBy:           createdBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if wc.HoursPerDay <= 0 {
		wc.HoursPerDay = 8
	}
	if wc.Efficiency == 0 {
		wc.Efficiency = 1
	}
	if wc.CapacityUnits <= 0 {
		wc.CapacityUnits = 1
	}
	if wc.WorkingDays == "" {
		wc.WorkingDays = "1,2,3,4,5"
	}
	if wc.ShiftHours <= 0 {
		wc.ShiftHours = wc.HoursPerDay
	}
	if err := s.store.Create(ctx, wc); err != nil {
		return nil, fmt.Errorf("create work center: %w", err)
	}
	return wc, nil
}

// Get 获取工作中心
func (s *WorkCenterService) Get(ctx context.Context, id string) (*entity.WorkCenter, error) {
	return s.store.FindByID(ctx, id)
}

// List 获取所有工作中心
func (s *WorkCenterService) List(ctx context.Context) ([]entity.WorkCenter, error) {
	return s.store.FindAll(ctx)
}

// Update 更新工作中心
func (s *WorkCenterService) Update(ctx context.Context, id string, input *CreateWorkCenterInput) (*entity.WorkCenter, error) {
	wc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("work center not found: %w", err)
	}
	if input.Efficiency < 0 || input.Efficiency > 1 {
		return nil, fmt.Errorf("效率必须在 [0, 1] 之间")
	}
	if input.AlternateID != nil && *input.AlternateID == id {
		return nil, fmt.Errorf("替代工作中心不能指向自身")
	}
	if input.WorkingDays != "" {
		if err := validateWorkingDays(input.WorkingDays); err != nil {
			return nil, err
		}
	}

	if input.Name != "" {
		wc.Name = input.Name
	}
	if input.Type != "" {
		wc.Type = input.Type
	}
	if input.HoursPerDay > 0 {
		wc.HoursPerDay = input.HoursPerDay
	}
	if input.Efficiency > 0 {
		wc.Efficiency = input.Efficiency
	}
	if input.CapacityUnits > 0 {
		wc.CapacityUnits = input.CapacityUnits
	}
	if input.WorkingDays != "" {
		wc.WorkingDays = input.WorkingDays
	}
	if input.ShiftHours > 0 {
		wc.ShiftHours = input.ShiftHours
	}
	wc.OvertimeRatePerHour = input.OvertimeRatePerHour
	wc.LaborRatePerHour = input.LaborRatePerHour
	wc.MachineRatePerHour = input.MachineRatePerHour
	wc.OverheadRatePerHour = input.OverheadRatePerHour
	wc.AlternateID = input.AlternateID
	wc.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, wc); err != nil {
		return nil, fmt.Errorf("update work center: %w", err)
	}
	return wc, nil
}

// Deactivate 停用工作中心
func (s *WorkCenterService) Deactivate(ctx context.Context, id string) error {
	wc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("work center not found: %w", err)
	}
	wc.Status = entity.WorkCenterStatusInactive
	wc.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, wc); err != nil {
		return fmt.Errorf("deactivate work center: %w", err)
	}
	return nil
}

// AddClosure 登记停工日
func (s *WorkCenterService) AddClosure(ctx context.Context, workCenterID string, date time.Time, reason, createdBy string) (*entity.WorkCenterClosure, error) {
	if _, err := s.store.FindByID(ctx, workCenterID); err != nil {
		return nil, fmt.Errorf("work center not found: %w", err)
	}
	closure := &entity.WorkCenterClosure{
		ID:           uuid.New().String()[:32],
		WorkCenterID: workCenterID,
		Date:         truncateDay(date),
		Reason:       reason,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateClosure(ctx, closure); err != nil {
		return nil, fmt.Errorf("create closure: %w", err)
	}
	return closure, nil
}

// AddOvertime 登记加班工时
func (s *WorkCenterService) AddOvertime(ctx context.Context, workCenterID string, date time.Time, hours float64, reason, createdBy string) (*entity.WorkCenterOvertime, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("加班工时必须大于0")
	}
	wc, err := s.store.FindByID(ctx, workCenterID)
	if err != nil {
		return nil, fmt.Errorf("work center not found: %w", err)
	}
	overtime := &entity.WorkCenterOvertime{
		ID:           uuid.New().String()[:32],
		WorkCenterID: workCenterID,
		Date:         truncateDay(date),
		Hours:        hours,
		RatePerHour:  wc.OvertimeRatePerHour,
		Reason:       reason,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateOvertime(ctx, overtime); err != nil {
		return nil, fmt.Errorf("create overtime: %w", err)
	}
	return overtime, nil
}

// AvailableHours 指定日期的可用工时
// 停工日为0（加班除外）；非工作日仅计加班；工作日 = 理论日工时 + 加班
func (s *WorkCenterService) AvailableHours(ctx context.Context, workCenterID string, date time.Time) (float64, error) {
	wc, err := s.store.FindByID(ctx, workCenterID)
	if err != nil {
		return 0, fmt.Errorf("work center not found: %w", err)
	}
	day := truncateDay(date)
	closures, err := s.store.FindClosures(ctx, workCenterID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("find closures: %w", err)
	}
	overtimes, err := s.store.FindOvertimes(ctx, workCenterID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("find overtimes: %w", err)
	}

	var extra float64
	for i := range overtimes {
		extra += overtimes[i].Hours
	}
	if len(closures) > 0 {
		return extra, nil
	}
	if !wc.WorksOn(day.Weekday()) {
		return extra, nil
	}
	return wc.TheoreticalDailyHours() + extra, nil
}

// PeriodAvailableHours 时段可用工时（逐日累加）
func (s *WorkCenterService) PeriodAvailableHours(ctx context.Context, workCenterID string, from, to time.Time) (float64, error) {
	var total float64
	for day := truncateDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		hours, err := s.AvailableHours(ctx, workCenterID, day)
		if err != nil {
			return 0, err
		}
		total += hours
	}
	return total, nil
}

// Utilization 时段利用率 = 已排负荷 / 可用工时，可用为0时返回0
func (s *WorkCenterService) Utilization(ctx context.Context, workCenterID string, loadHours float64, from, to time.Time) (float64, error) {
	available, err := s.PeriodAvailableHours(ctx, workCenterID, from, to)
	if err != nil {
		return 0, err
	}
	if available <= 0 {
		return 0, nil
	}
	return loadHours / available, nil
}
