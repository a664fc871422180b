package models

import (
	"placement-optimizer/internal/config"
	"placement-optimizer/internal/model"
)

// OptimizeRequest is the body of POST /api/v1/optimize. Unset fields fall back
// to the server's configured defaults.
type OptimizeRequest struct {
	PremiumWeight         *float64        `json:"premium_weight"`
	CoverageWeight        *float64        `json:"coverage_weight"`
	WeightMode            string          `json:"weight_mode,omitempty"` // "raw" (default) or "normalized"
	CreditThreshold       *int            `json:"credit_threshold"`
	RequiredCarriers      []string        `json:"required_carriers,omitempty"`
	Diversify             bool            `json:"diversify"`
	MaxCapacityAbs        *float64        `json:"max_capacity_abs"`
	MinCapacityAbs        *float64        `json:"min_capacity_abs"`
	DiversificationFactor *float64        `json:"diversification_factor"`
	UseHierarchical       bool            `json:"use_hierarchical"`
	Baseline              *model.Baseline `json:"baseline,omitempty"`
}

// ToModel overlays the request on top of defaults. Empty carrier names are
// dropped, matching what the UI sends for cleared inputs.
func (r OptimizeRequest) ToModel(defaults config.RequestDefaults) model.AllocationRequest {
	out := defaults.Request()
	if r.PremiumWeight != nil {
		out.PremiumWeight = *r.PremiumWeight
	}
	if r.CoverageWeight != nil {
		out.CoverageWeight = *r.CoverageWeight
	}
	if r.WeightMode != "" {
		out.WeightMode = model.WeightMode(r.WeightMode)
	}
	if r.CreditThreshold != nil {
		out.MinCredit = *r.CreditThreshold
	}
	if r.RequiredCarriers != nil {
		out.RequiredCarriers = nil
		for _, c := range r.RequiredCarriers {
			if c != "" {
				out.RequiredCarriers = append(out.RequiredCarriers, c)
			}
		}
	}
	if r.Diversify {
		out.Diversify = true
	}
	if r.MaxCapacityAbs != nil {
		out.MaxCapacityPerPair = r.MaxCapacityAbs
	}
	if r.MinCapacityAbs != nil {
		out.MinCapacityPerPair = r.MinCapacityAbs
	}
	if r.DiversificationFactor != nil {
		out.DiversificationFactor = r.DiversificationFactor
	}
	out.Baseline = r.Baseline
	return out
}

// TargetsRequest is the body of POST /api/v1/optimize/targets.
type TargetsRequest struct {
	OptimizeRequest
	Targets *model.Targets `json:"targets" binding:"required"`
}

// MaxCoverageRequest is the body of POST /api/v1/optimize/max-coverage.
type MaxCoverageRequest struct {
	OptimizeRequest
	PremiumThreshold *float64 `json:"premium_threshold" binding:"required"`
}

// FrontierRequest is the body of POST /api/v1/frontier.
type FrontierRequest struct {
	OptimizeRequest
	NumCandidates int `json:"num_candidates,omitempty"` // 0 = server default
}

// QuotesQuery filters GET /api/v1/quotes.
type QuotesQuery struct {
	Layer     string `form:"layer"`
	Carrier   string `form:"carrier"`
	MinCredit int    `form:"min_credit"`
}
