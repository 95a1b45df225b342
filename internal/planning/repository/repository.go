package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// notFound 将gorm的未找到错误映射为仓库层统一错误
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Repositories 仓库集合
type Repositories struct {
	Product    *ProductRepository
	Inventory  *InventoryRepository
	BOM        *BOMRepository
	Routing    *RoutingRepository
	WorkCenter *WorkCenterRepository
	Demand     *DemandRepository
	Receipt    *ReceiptRepository
	MRP        *MRPRepository
	WorkOrder  *WorkOrderRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:    NewProductRepository(db),
		Inventory:  NewInventoryRepository(db),
		BOM:        NewBOMRepository(db),
		Routing:    NewRoutingRepository(db),
		WorkCenter: NewWorkCenterRepository(db),
		Demand:     NewDemandRepository(db),
		Receipt:    NewReceiptRepository(db),
		MRP:        NewMRPRepository(db),
		WorkOrder:  NewWorkOrderRepository(db),
	}
}
