package model

import "github.com/google/uuid"

// FrontierPoint is one successful max-coverage solve under a premium ceiling.
type FrontierPoint struct {
	OptionID                 int               `json:"option_id"`
	Threshold                float64           `json:"threshold"`
	Premium                  float64           `json:"premium"`
	AverageCoverage          float64           `json:"average_coverage"`
	TotalCoverage            float64           `json:"total_coverage"`
	BangForBuck              float64           `json:"bang_for_buck"`
	Status                   Status            `json:"status"`
	RequiredCarriersIncluded []string          `json:"required_carriers_included,omitempty"`
	Result                   *AllocationResult `json:"solution,omitempty"`
}

// Frontier is the outcome of a premium-ceiling sweep. Points are ordered by
// threshold. Thresholds that had no feasible allocation, or whose solve failed,
// are left out and counted in Skipped by error kind.
type Frontier struct {
	ID                 uuid.UUID       `json:"id"`
	MinPremium         float64         `json:"min_premium"`
	MaxCoveragePremium float64         `json:"max_premium"`
	Requested          int             `json:"requested"`
	Points             []FrontierPoint `json:"options"`
	Skipped            map[string]int  `json:"skipped,omitempty"`
}
