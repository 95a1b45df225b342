package handler

import (
	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// ProductHandler 产品处理器
type ProductHandler struct {
	svc *service.ProductService
}

// NewProductHandler 创建产品处理器
func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Create 创建产品
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	product, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, product)
}

// Get 获取产品
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "product not found: "+err.Error())
		return
	}
	Success(c, product)
}

// List 获取产品列表
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, products)
}

// Update 更新产品
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	product, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, product)
}

// Deactivate 停用产品
func (h *ProductHandler) Deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, nil)
}

// SetInventory 设置库存快照
func (h *ProductHandler) SetInventory(c *gin.Context) {
	var req struct {
		WarehouseID string  `json:"warehouse_id"`
		Quantity    float64 `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	inv, err := h.svc.SetInventory(c.Request.Context(), c.Param("id"), req.WarehouseID, req.Quantity)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, inv)
}

// OnHand 查询现有库存
func (h *ProductHandler) OnHand(c *gin.Context) {
	qty, err := h.svc.OnHand(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, gin.H{"product_id": c.Param("id"), "on_hand": qty})
}
