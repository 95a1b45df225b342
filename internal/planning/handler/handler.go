package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Product    *ProductHandler
	BOM        *BOMHandler
	Routing    *RoutingHandler
	WorkCenter *WorkCenterHandler
	Demand     *DemandHandler
	MRP        *MRPHandler
	Capacity   *CapacityHandler
	WorkOrder  *WorkOrderHandler
}

// PlanningDefaults 计划参数缺省值，来自配置的planning段
type PlanningDefaults struct {
	HorizonDays int
	BucketDays  int
	LotSizing   string
}

func (d PlanningDefaults) normalized() PlanningDefaults {
	if d.HorizonDays <= 0 {
		d.HorizonDays = 90
	}
	if d.BucketDays <= 0 {
		d.BucketDays = 7
	}
	if d.LotSizing == "" {
		d.LotSizing = service.LotForLot
	}
	return d
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, defaults PlanningDefaults) *Handlers {
	defaults = defaults.normalized()
	return &Handlers{
		Product:    NewProductHandler(svc.Product),
		BOM:        NewBOMHandler(svc.BOM),
		Routing:    NewRoutingHandler(svc.Routing),
		WorkCenter: NewWorkCenterHandler(svc.WorkCenter),
		Demand:     NewDemandHandler(svc.Demand),
		MRP:        NewMRPHandler(svc.MRP, svc.Archive, defaults),
		Capacity:   NewCapacityHandler(svc.Capacity, svc.Resolver, defaults),
		WorkOrder:  NewWorkOrderHandler(svc.WorkOrder),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 业务冲突响应（版本/状态冲突、循环引用）
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// BusinessError 按业务错误类型选择响应
func BusinessError(c *gin.Context, err error) {
	var circular *service.CircularDependencyError
	var version *service.InvalidVersionError
	var transition *service.StatusTransitionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.As(err, &circular), errors.As(err, &version), errors.As(err, &transition):
		Conflict(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// QueryDate 解析日期查询参数，缺省时返回默认值
func QueryDate(c *gin.Context, key string, def time.Time) time.Time {
	if v := c.Query(key); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			return t
		}
	}
	return def
}

// QueryInt 解析整数查询参数
func QueryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// QueryFloat 解析浮点查询参数
func QueryFloat(c *gin.Context, key string, def float64) float64 {
	if v := c.Query(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
