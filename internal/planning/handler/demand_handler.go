package handler

import (
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// DemandHandler 需求处理器
type DemandHandler struct {
	svc *service.DemandService
}

// NewDemandHandler 创建需求处理器
func NewDemandHandler(svc *service.DemandService) *DemandHandler {
	return &DemandHandler{svc: svc}
}

// Create 创建需求
func (h *DemandHandler) Create(c *gin.Context) {
	var req service.CreateDemandInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	demand, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, demand)
}

// List 查询产品需求
func (h *DemandHandler) List(c *gin.Context) {
	from := QueryDate(c, "from", time.Now())
	to := QueryDate(c, "to", from.AddDate(0, 3, 0))
	demands, err := h.svc.List(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, demands)
}

// Delete 删除需求
func (h *DemandHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, nil)
}

// AddReceipt 登记计划入库
func (h *DemandHandler) AddReceipt(c *gin.Context) {
	var req struct {
		ProductID  string    `json:"product_id" binding:"required"`
		Quantity   float64   `json:"quantity" binding:"required,gt=0"`
		DueDate    time.Time `json:"due_date" binding:"required"`
		SourceType string    `json:"source_type" binding:"required"`
		SourceID   string    `json:"source_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	receipt, err := h.svc.AddReceipt(c.Request.Context(), req.ProductID, req.Quantity, req.DueDate, req.SourceType, req.SourceID)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, receipt)
}

// ImportForecast 导入预测需求CSV（GBK编码）
func (h *DemandHandler) ImportForecast(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required: "+err.Error())
		return
	}
	f, err := file.Open()
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	result, err := h.svc.ImportForecastCSV(c.Request.Context(), f, GetUserID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, result)
}
