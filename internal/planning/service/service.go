package service

import (
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 计划域服务集合
type Services struct {
	Product    *ProductService
	BOM        *BOMService
	Routing    *RoutingService
	WorkCenter *WorkCenterService
	Demand     *DemandService
	MRP        *MRPService
	Capacity   *CapacityService
	Resolver   *CapacityResolver
	WorkOrder  *WorkOrderService
	Archive    *ArchiveService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, minioClient *minio.Client, archiveBucket string, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}

	product := NewProductService(repos.Product, repos.Inventory)
	bom := NewBOMService(repos.BOM)
	routing := NewRoutingService(repos.Routing, repos.WorkCenter)
	workCenter := NewWorkCenterService(repos.WorkCenter)
	demand := NewDemandService(repos.Demand, repos.Receipt, repos.Product, logger)
	workOrder := NewWorkOrderService(repos.WorkOrder, bom, routing, logger)
	mrp := NewMRPService(bom, repos.Product, repos.Demand, repos.Receipt, repos.Inventory, repos.MRP, workOrder, rdb, logger)
	capacity := NewCapacityService(workCenter, routing, repos.WorkOrder, repos.MRP, logger)
	resolver := NewCapacityResolver(workCenter, workOrder, capacity, logger)

	var archive *ArchiveService
	if minioClient != nil {
		archive = NewArchiveService(minioClient, archiveBucket, mrp, logger)
	}

	return &Services{
		Product:    product,
		BOM:        bom,
		Routing:    routing,
		WorkCenter: workCenter,
		Demand:     demand,
		MRP:        mrp,
		Capacity:   capacity,
		Resolver:   resolver,
		WorkOrder:  workOrder,
		Archive:    archive,
	}
}
