package handlers

import (
	"context"
	"net/http"

	"placement-optimizer/internal/api/models"
	"placement-optimizer/internal/config"
	"placement-optimizer/internal/data"
	"placement-optimizer/internal/logger"
	"placement-optimizer/internal/model"

	"github.com/gin-gonic/gin"
)

// Optimizer is the allocation surface the handlers call.
type Optimizer interface {
	OptimizeContinuous(ctx context.Context, req model.AllocationRequest) (*model.AllocationResult, error)
	OptimizeHierarchical(ctx context.Context, req model.AllocationRequest) (*model.AllocationResult, error)
	OptimizeMaxCoverageUnderPremiumCeiling(ctx context.Context, threshold float64, req model.AllocationRequest) (*model.AllocationResult, *model.Metrics, error)
	OptimizeTargets(ctx context.Context, req model.AllocationRequest, targets model.Targets) (*model.AllocationResult, error)
}

// OptimizeHandler handles single-solve requests
type OptimizeHandler struct {
	optimizer Optimizer
	defaults  config.RequestDefaults
	cache     *data.ResultCache
}

// NewOptimizeHandler creates a new optimize handler. cache may be nil.
func NewOptimizeHandler(o Optimizer, defaults config.RequestDefaults, cache *data.ResultCache) *OptimizeHandler {
	return &OptimizeHandler{optimizer: o, defaults: defaults, cache: cache}
}

// Optimize handles POST /api/v1/optimize
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var body models.OptimizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req := body.ToModel(h.defaults)

	variant := "continuous"
	solve := h.optimizer.OptimizeContinuous
	if body.UseHierarchical {
		variant = "hierarchical"
		solve = h.optimizer.OptimizeHierarchical
	}
	logger.FromContext(c.Request.Context()).Infow("optimize requested",
		"variant", variant,
		"premium_weight", req.PremiumWeight,
		"coverage_weight", req.CoverageWeight,
		"required_carriers", req.RequiredCarriers,
		"min_credit", req.MinCredit,
		"diversify", req.Diversify,
	)

	key := data.CacheKey(variant, req)
	if res, ok := h.cache.Get(key); ok {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, res)
		return
	}
	res, err := solve(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Set(key, res)
	c.JSON(http.StatusOK, res)
}

// OptimizeTargets handles POST /api/v1/optimize/targets
func (h *OptimizeHandler) OptimizeTargets(c *gin.Context) {
	var body models.TargetsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req := body.ToModel(h.defaults)
	res, err := h.optimizer.OptimizeTargets(c.Request.Context(), req, *body.Targets)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// OptimizeMaxCoverage handles POST /api/v1/optimize/max-coverage
func (h *OptimizeHandler) OptimizeMaxCoverage(c *gin.Context) {
	var body models.MaxCoverageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req := body.ToModel(h.defaults)
	res, metrics, err := h.optimizer.OptimizeMaxCoverageUnderPremiumCeiling(c.Request.Context(), *body.PremiumThreshold, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MaxCoverageResponse{Result: res, Metrics: metrics})
}

var objectiveModes = []models.ObjectiveMode{
	{
		ID:          "continuous",
		Name:        "Weighted premium vs coverage",
		Endpoint:    "POST /api/v1/optimize",
		Description: "Minimizes weighted premium minus weighted coverage. Required carriers and diversification limits are hard constraints.",
	},
	{
		ID:          "hierarchical",
		Name:        "Hierarchical",
		Endpoint:    "POST /api/v1/optimize (use_hierarchical=true)",
		Description: "Requires each required carrier only in the layers it quotes and turns diversification limits into penalized goals.",
	},
	{
		ID:          "max_coverage",
		Name:        "Max coverage under a premium ceiling",
		Endpoint:    "POST /api/v1/optimize/max-coverage",
		Description: "Maximizes quality-weighted capacity with total premium capped at premium_threshold.",
	},
	{
		ID:          "targets",
		Name:        "Targets",
		Endpoint:    "POST /api/v1/optimize/targets",
		Description: "Treats a premium target and per-layer coverage floors as soft goals and reports how far each was missed.",
	},
	{
		ID:          "frontier",
		Name:        "Premium/coverage frontier",
		Endpoint:    "POST /api/v1/frontier",
		Description: "Sweeps premium ceilings between the cheapest and the best-coverage placement.",
	},
}

// ObjectiveModes handles GET /api/v1/objective-modes
func ObjectiveModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": objectiveModes})
}
