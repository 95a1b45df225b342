package handler

import (
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/gin-gonic/gin"
)

// CapacityHandler 产能处理器
type CapacityHandler struct {
	svc      *service.CapacityService
	resolver *service.CapacityResolver
	defaults PlanningDefaults
}

// NewCapacityHandler 创建产能处理器
func NewCapacityHandler(svc *service.CapacityService, resolver *service.CapacityResolver, defaults PlanningDefaults) *CapacityHandler {
	return &CapacityHandler{svc: svc, resolver: resolver, defaults: defaults}
}

func (h *CapacityHandler) horizon(c *gin.Context) service.PlanningHorizon {
	from := QueryDate(c, "from", time.Now())
	to := QueryDate(c, "to", from.AddDate(0, 0, h.defaults.HorizonDays))
	return service.NewPlanningHorizon(from, to, QueryInt(c, "bucket_days", h.defaults.BucketDays))
}

// Load 查询产能负荷
func (h *CapacityHandler) Load(c *gin.Context) {
	profile, err := h.svc.CalculateLoad(c.Request.Context(), c.Param("id"), h.horizon(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, gin.H{
		"profile":            profile,
		"is_overloaded":      profile.IsOverloaded(),
		"excess_load":        profile.ExcessLoad(),
		"overloaded_periods": profile.OverloadedPeriods(),
	})
}

// Suggestions 获取产能调节建议
func (h *CapacityHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.svc.SuggestResolutions(c.Request.Context(), c.Param("id"), h.horizon(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, suggestions)
}

// Apply 执行单条建议
func (h *CapacityHandler) Apply(c *gin.Context) {
	var req struct {
		Suggestion service.ResolutionSuggestion `json:"suggestion" binding:"required"`
		Approved   bool                         `json:"approved"`
		Force      bool                         `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result, err := h.resolver.ApplySuggestion(c.Request.Context(), &req.Suggestion, service.ApplyOptions{
		Approved:  req.Approved,
		Force:     req.Force,
		AppliedBy: GetUserID(c),
	})
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, result)
}

// AutoResolve 自动化解超载
func (h *CapacityHandler) AutoResolve(c *gin.Context) {
	applied, err := h.resolver.AutoResolve(c.Request.Context(), c.Param("id"), h.horizon(c), GetUserID(c))
	if err != nil {
		BusinessError(c, err)
		return
	}
	Success(c, gin.H{"applied": applied, "count": len(applied)})
}

// Validate 校验建议
func (h *CapacityHandler) Validate(c *gin.Context) {
	var req struct {
		Suggestion     service.ResolutionSuggestion `json:"suggestion" binding:"required"`
		OvertimeBudget float64                      `json:"overtime_budget"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	violations := h.resolver.ValidateSuggestion(c.Request.Context(), &req.Suggestion, req.OvertimeBudget)
	Success(c, gin.H{"violations": violations, "valid": len(violations) == 0})
}
