package handler

import (
	"strings"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// WorkOrderHandler 工单处理器
type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

// NewWorkOrderHandler 创建工单处理器
func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

// Create 创建工单
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wo, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, wo)
}

// Get 获取工单
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "work order not found: "+err.Error())
		return
	}
	Success(c, wo)
}

// List 按状态查询工单
func (h *WorkOrderHandler) List(c *gin.Context) {
	statuses := strings.Split(c.DefaultQuery("status", "PLANNED,RELEASED,IN_PROGRESS"), ",")
	wos, err := h.svc.ListByStatus(c.Request.Context(), statuses)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, wos)
}

// Release 下达工单
func (h *WorkOrderHandler) Release(c *gin.Context) {
	wo, err := h.svc.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// Start 开工
func (h *WorkOrderHandler) Start(c *gin.Context) {
	wo, err := h.svc.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// Hold 暂停工单
func (h *WorkOrderHandler) Hold(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wo, err := h.svc.Hold(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// Resume 恢复工单
func (h *WorkOrderHandler) Resume(c *gin.Context) {
	wo, err := h.svc.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// Cancel 取消工单
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wo, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// Close 关闭工单
func (h *WorkOrderHandler) Close(c *gin.Context) {
	wo, err := h.svc.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// ReportCompletion 完工报工
func (h *WorkOrderHandler) ReportCompletion(c *gin.Context) {
	var req struct {
		CompletedQty float64 `json:"completed_qty"`
		ScrapQty     float64 `json:"scrap_qty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wo, err := h.svc.ReportCompletion(c.Request.Context(), c.Param("id"), req.CompletedQty, req.ScrapQty)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// ReportOperation 工序报工
func (h *WorkOrderHandler) ReportOperation(c *gin.Context) {
	var req struct {
		SetupHours float64 `json:"setup_hours"`
		RunHours   float64 `json:"run_hours"`
		Completed  bool    `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	line, err := h.svc.ReportOperation(c.Request.Context(), c.Param("id"), c.Param("lineId"), req.SetupHours, req.RunHours, req.Completed)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, line)
}

// IssueMaterial 领料
func (h *WorkOrderHandler) IssueMaterial(c *gin.Context) {
	var req struct {
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	line, err := h.svc.IssueMaterial(c.Request.Context(), c.Param("id"), c.Param("lineId"), req.Quantity)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, line)
}

// ChangeQuantity 调整数量
func (h *WorkOrderHandler) ChangeQuantity(c *gin.Context) {
	var req struct {
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wo, err := h.svc.ChangeQuantity(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}

// Reschedule 改期
func (h *WorkOrderHandler) Reschedule(c *gin.Context) {
	var req struct {
		PlannedStart *time.Time `json:"planned_start"`
		PlannedEnd   *time.Time `json:"planned_end"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wo, err := h.svc.Reschedule(c.Request.Context(), c.Param("id"), req.PlannedStart, req.PlannedEnd)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wo)
}
