package handler

import (
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// WorkCenterHandler 工作中心处理器
type WorkCenterHandler struct {
	svc *service.WorkCenterService
}

// NewWorkCenterHandler 创建工作中心处理器
func NewWorkCenterHandler(svc *service.WorkCenterService) *WorkCenterHandler {
	return &WorkCenterHandler{svc: svc}
}

// Create 创建工作中心
func (h *WorkCenterHandler) Create(c *gin.Context) {
	var req service.CreateWorkCenterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wc, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, wc)
}

// Get 获取工作中心
func (h *WorkCenterHandler) Get(c *gin.Context) {
	wc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "work center not found: "+err.Error())
		return
	}
	Success(c, wc)
}

// List 获取工作中心列表
func (h *WorkCenterHandler) List(c *gin.Context) {
	wcs, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, wcs)
}

// Update 更新工作中心
func (h *WorkCenterHandler) Update(c *gin.Context) {
	var req service.CreateWorkCenterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	wc, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, wc)
}

// Deactivate 停用工作中心
func (h *WorkCenterHandler) Deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, nil)
}

// AddClosure 登记停工日
func (h *WorkCenterHandler) AddClosure(c *gin.Context) {
	var req struct {
		Date   time.Time `json:"date" binding:"required"`
		Reason string    `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	closure, err := h.svc.AddClosure(c.Request.Context(), c.Param("id"), req.Date, req.Reason, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, closure)
}

// AddOvertime 登记加班
func (h *WorkCenterHandler) AddOvertime(c *gin.Context) {
	var req struct {
		Date   time.Time `json:"date" binding:"required"`
		Hours  float64   `json:"hours" binding:"required,gt=0"`
		Reason string    `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	overtime, err := h.svc.AddOvertime(c.Request.Context(), c.Param("id"), req.Date, req.Hours, req.Reason, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, overtime)
}

// AvailableHours 查询可用工时
func (h *WorkCenterHandler) AvailableHours(c *gin.Context) {
	from := QueryDate(c, "from", time.Now())
	to := QueryDate(c, "to", from.AddDate(0, 0, 1))
	hours, err := h.svc.PeriodAvailableHours(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, gin.H{"from": from, "to": to, "available_hours": hours})
}
