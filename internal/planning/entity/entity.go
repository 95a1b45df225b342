package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有APS表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 主数据
		&Product{},
		&WorkCenter{},
		&WorkCenterClosure{},
		&WorkCenterOvertime{},

		// 产品结构与工艺
		&BOM{},
		&BOMLine{},
		&Routing{},
		&RoutingOperation{},

		// 需求与库存快照
		&Demand{},
		&ScheduledReceipt{},
		&Inventory{},

		// MRP
		&MRPRun{},
		&MRPRequirement{},
		&PlannedOrder{},

		// 生产执行
		&WorkOrder{},
		&WorkOrderLine{},
	)
}
