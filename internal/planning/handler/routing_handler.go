package handler

import (
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// RoutingHandler 工艺路线处理器
type RoutingHandler struct {
	svc *service.RoutingService
}

// NewRoutingHandler 创建工艺路线处理器
func NewRoutingHandler(svc *service.RoutingService) *RoutingHandler {
	return &RoutingHandler{svc: svc}
}

// Create 创建工艺路线
func (h *RoutingHandler) Create(c *gin.Context) {
	var req service.CreateRoutingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	routing, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, routing)
}

// Get 获取工艺路线详情
func (h *RoutingHandler) Get(c *gin.Context) {
	routing, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "routing not found: "+err.Error())
		return
	}
	Success(c, routing)
}

// ListVersions 获取产品的工艺路线版本列表
func (h *RoutingHandler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, versions)
}

// GetEffective 获取产品生效工艺路线
func (h *RoutingHandler) GetEffective(c *gin.Context) {
	asOf := QueryDate(c, "as_of", time.Now())
	routing, err := h.svc.GetEffective(c.Request.Context(), c.Param("productId"), asOf)
	if err != nil {
		NotFound(c, "effective routing not found: "+err.Error())
		return
	}
	Success(c, routing)
}

// NewVersion 克隆新版本
func (h *RoutingHandler) NewVersion(c *gin.Context) {
	var req struct {
		Version string `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	routing, err := h.svc.NewVersion(c.Request.Context(), c.Param("id"), req.Version, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, routing)
}

// Release 发布工艺路线
func (h *RoutingHandler) Release(c *gin.Context) {
	routing, err := h.svc.Release(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, routing)
}

// Obsolete 作废工艺路线
func (h *RoutingHandler) Obsolete(c *gin.Context) {
	routing, err := h.svc.Obsolete(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, routing)
}

// AddOperation 添加工序
func (h *RoutingHandler) AddOperation(c *gin.Context) {
	var req service.OperationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	op, err := h.svc.AddOperation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, op)
}

// UpdateOperation 更新工序
func (h *RoutingHandler) UpdateOperation(c *gin.Context) {
	var req service.OperationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	op, err := h.svc.UpdateOperation(c.Request.Context(), c.Param("id"), c.Param("opId"), &req)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, op)
}

// RemoveOperation 删除工序
func (h *RoutingHandler) RemoveOperation(c *gin.Context) {
	if err := h.svc.RemoveOperation(c.Request.Context(), c.Param("id"), c.Param("opId")); err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, nil)
}

// LeadTime 计算制造提前期
func (h *RoutingHandler) LeadTime(c *gin.Context) {
	qty := QueryFloat(c, "qty", 1)
	if qty <= 0 {
		BadRequest(c, "qty must be positive")
		return
	}
	hours, err := h.svc.LeadTimeHours(c.Request.Context(), c.Param("id"), qty)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, gin.H{"qty": qty, "lead_time_hours": hours})
}

// Cost 计算工艺成本
func (h *RoutingHandler) Cost(c *gin.Context) {
	qty := QueryFloat(c, "qty", 1)
	if qty <= 0 {
		BadRequest(c, "qty must be positive")
		return
	}
	cost, err := h.svc.CalculateCost(c.Request.Context(), c.Param("id"), qty)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, cost)
}
