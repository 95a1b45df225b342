package handler

import (
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// BOMHandler BOM处理器
type BOMHandler struct {
	svc *service.BOMService
}

// NewBOMHandler 创建BOM处理器
func NewBOMHandler(svc *service.BOMService) *BOMHandler {
	return &BOMHandler{svc: svc}
}

// Create 创建BOM
func (h *BOMHandler) Create(c *gin.Context) {
	var req service.CreateBOMInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bom, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, bom)
}

// Get 获取BOM详情
func (h *BOMHandler) Get(c *gin.Context) {
	bom, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "BOM not found: "+err.Error())
		return
	}
	Success(c, bom)
}

// ListVersions 获取产品的BOM版本列表
func (h *BOMHandler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, versions)
}

// GetEffective 获取产品生效BOM
func (h *BOMHandler) GetEffective(c *gin.Context) {
	asOf := QueryDate(c, "as_of", time.Now())
	bom, err := h.svc.GetEffective(c.Request.Context(), c.Param("productId"), asOf)
	if err != nil {
		NotFound(c, "effective BOM not found: "+err.Error())
		return
	}
	Success(c, bom)
}

// NewVersion 克隆新版本
func (h *BOMHandler) NewVersion(c *gin.Context) {
	var req struct {
		Version string `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bom, err := h.svc.NewVersion(c.Request.Context(), c.Param("id"), req.Version, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, bom)
}

// Release 发布BOM
func (h *BOMHandler) Release(c *gin.Context) {
	bom, err := h.svc.Release(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, bom)
}

// Obsolete 作废BOM
func (h *BOMHandler) Obsolete(c *gin.Context) {
	bom, err := h.svc.Obsolete(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, bom)
}

// AddLine 添加行项
func (h *BOMHandler) AddLine(c *gin.Context) {
	var req service.BOMLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	line, err := h.svc.AddLine(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, line)
}

// UpdateLine 更新行项
func (h *BOMHandler) UpdateLine(c *gin.Context) {
	var req service.BOMLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	line, err := h.svc.UpdateLine(c.Request.Context(), c.Param("id"), c.Param("lineId"), &req)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, line)
}

// RemoveLine 删除行项
func (h *BOMHandler) RemoveLine(c *gin.Context) {
	if err := h.svc.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineId")); err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, nil)
}

// Explode 多层展开
func (h *BOMHandler) Explode(c *gin.Context) {
	qty := QueryFloat(c, "qty", 1)
	if qty <= 0 {
		BadRequest(c, "qty must be positive")
		return
	}
	components, err := h.svc.Explode(c.Request.Context(), c.Param("id"), qty)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, components)
}

// WhereUsed 组件反查
func (h *BOMHandler) WhereUsed(c *gin.Context) {
	boms, err := h.svc.WhereUsed(c.Request.Context(), c.Param("componentId"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, boms)
}

// Validate 校验BOM
func (h *BOMHandler) Validate(c *gin.Context) {
	problems := h.svc.Validate(c.Request.Context(), c.Param("id"))
	Success(c, gin.H{"problems": problems, "valid": len(problems) == 0})
}
