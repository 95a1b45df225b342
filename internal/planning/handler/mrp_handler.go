package handler

import (
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// MRPHandler MRP处理器
type MRPHandler struct {
	svc      *service.MRPService
	archive  *service.ArchiveService
	defaults PlanningDefaults
}

// NewMRPHandler 创建MRP处理器
func NewMRPHandler(svc *service.MRPService, archive *service.ArchiveService, defaults PlanningDefaults) *MRPHandler {
	return &MRPHandler{svc: svc, archive: archive, defaults: defaults}
}

// runRequest MRP运行请求，计划期终点/分桶/批量策略缺省取配置值
type runRequest struct {
	ProductID  string                  `json:"product_id" binding:"required"`
	Start      time.Time               `json:"start" binding:"required"`
	End        time.Time               `json:"end"`
	BucketDays int                     `json:"bucket_days"`
	LotSizing  string                  `json:"lot_sizing"`
	LotParams  service.LotSizingParams `json:"lot_params"`
}

func (h *MRPHandler) toInput(r *runRequest) *service.MRPInput {
	end := r.End
	if end.IsZero() {
		end = r.Start.AddDate(0, 0, h.defaults.HorizonDays)
	}
	bucketDays := r.BucketDays
	if bucketDays <= 0 {
		bucketDays = h.defaults.BucketDays
	}
	lotSizing := r.LotSizing
	if lotSizing == "" {
		lotSizing = h.defaults.LotSizing
	}
	return &service.MRPInput{
		ProductID: r.ProductID,
		Horizon:   service.NewPlanningHorizon(r.Start, end, bucketDays),
		LotSizing: lotSizing,
		LotParams: r.LotParams,
	}
}

// Calculate 试算MRP（不落库）
func (h *MRPHandler) Calculate(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result, err := h.svc.Calculate(c.Request.Context(), h.toInput(&req))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, result)
}

// Run 运行MRP并落库
func (h *MRPHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	run, result, err := h.svc.Run(c.Request.Context(), h.toInput(&req), GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Created(c, gin.H{"run": run, "result": result})
}

// GetRun 获取运行记录
func (h *MRPHandler) GetRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "mrp run not found: "+err.Error())
		return
	}
	Success(c, run)
}

// ListRuns 获取运行记录列表
func (h *MRPHandler) ListRuns(c *gin.Context) {
	runs, err := h.svc.ListRuns(c.Request.Context(), c.Query("product_id"), QueryInt(c, "limit", 20))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, runs)
}

// GetRunResult 获取运行结果
func (h *MRPHandler) GetRunResult(c *gin.Context) {
	result, err := h.svc.GetRunResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, result)
}

// Apply 下达运行结果
func (h *MRPHandler) Apply(c *gin.Context) {
	run, err := h.svc.Apply(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, run)
}

// Pegging 需求追溯
func (h *MRPHandler) Pegging(c *gin.Context) {
	date := QueryDate(c, "date", time.Now())
	sources, err := h.svc.Pegging(c.Request.Context(), c.Param("productId"), date)
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, sources)
}

// Latest 获取最近一次计算结果（缓存）
func (h *MRPHandler) Latest(c *gin.Context) {
	result, err := h.svc.LatestResult(c.Request.Context(), c.Param("productId"))
	if err != nil {
		NotFound(c, "no cached result: "+err.Error())
		return
	}
	Success(c, result)
}

// Export 导出运行结果为Excel
func (h *MRPHandler) Export(c *gin.Context) {
	workbook, err := h.svc.ExportRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=mrp-run-%s.xlsx", c.Param("id")))
	if err := workbook.Write(c.Writer); err != nil {
		InternalError(c, err.Error())
		return
	}
}

// Archive 归档运行结果到对象存储
func (h *MRPHandler) Archive(c *gin.Context) {
	if h.archive == nil {
		InternalError(c, "对象存储未配置")
		return
	}
	objectName, err := h.archive.ArchiveRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		BusinessError(c, err)
		return
	}
	url, err := h.archive.PresignedURL(c.Request.Context(), objectName, 3600)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"object": objectName, "url": url})
}
