package model

import "github.com/google/uuid"

// Status is the solve outcome reported with every result.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusFeasible   Status = "Feasible"
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusNotSolved  Status = "NotSolved"
	StatusError      Status = "Error"
)

// Solved reports whether the status carries a usable allocation.
func (s Status) Solved() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// QuoteAllocation is one quote's share of the placement.
// AllocationPercentage is the signed capacity as a percentage of the layer's
// required capacity, so the percentages of a filled layer sum to 100.
type QuoteAllocation struct {
	Quote
	FractionAllocated    float64 `json:"fraction_allocated"`
	SignedCapacity       float64 `json:"signed_capacity"`
	SignedPremium        float64 `json:"signed_premium"`
	AllocationPercentage float64 `json:"allocation_percentage"`
}

type LayerSummary struct {
	Layer            string  `json:"layer"`
	RequiredCapacity float64 `json:"required_capacity"`
	SignedCapacity   float64 `json:"signed_capacity"`
	SignedPremium    float64 `json:"signed_premium"`
	// AverageCoverage is the capacity-weighted coverage score of the layer.
	AverageCoverage float64 `json:"average_coverage"`
	ActiveCarriers  int     `json:"active_carriers"`
}

type Summary struct {
	// TotalPremium is rounded to cents for presentation.
	TotalPremium float64 `json:"total_premium"`
	// UnroundedPremium is premium·fraction summed over the solver's raw values,
	// before near-zero fractions are dropped.
	UnroundedPremium float64 `json:"-"`
	TotalCapacity    float64 `json:"total_capacity"`
	AverageCoverage  float64 `json:"average_coverage"`
	TotalCoverage    float64 `json:"total_coverage"`
	CarriersUsed     int     `json:"carriers_used"`
	// DiversityRatio is max/min capacity across carriers with an allocation.
	DiversityRatio float64 `json:"diversity_ratio"`
	// CapacityStdDev is the population standard deviation of carrier capacity.
	CapacityStdDev float64 `json:"capacity_std_dev"`
}

// RequiredCarrierStatus reports where a required carrier ended up.
type RequiredCarrierStatus struct {
	Carrier        string   `json:"carrier"`
	FeasibleLayers []string `json:"feasible_layers"`
	IncludedLayers []string `json:"included_layers"`
	SignedCapacity float64  `json:"signed_capacity"`
}

// SlackReport lists the goal-programming slacks that ended up non-zero.
type SlackReport struct {
	Premium         float64            `json:"premium,omitempty"`
	Coverage        map[string]float64 `json:"coverage,omitempty"`
	Diversification map[string]float64 `json:"diversification,omitempty"`
}

func (s SlackReport) Empty() bool {
	return s.Premium == 0 && len(s.Coverage) == 0 && len(s.Diversification) == 0
}

type AllocationResult struct {
	ID               uuid.UUID               `json:"id"`
	Status           Status                  `json:"status"`
	Allocations      []QuoteAllocation       `json:"allocations"`
	Layers           []LayerSummary          `json:"layers"`
	Summary          Summary                 `json:"summary"`
	RequiredCarriers []RequiredCarrierStatus `json:"required_carriers,omitempty"`
	Slack            SlackReport             `json:"slack"`
	ObjectiveValue   float64                 `json:"objective_value"`
	// Message is the status followed by any advisory notes.
	Message     string   `json:"message"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Allocated returns only the quotes with a non-zero allocation.
func (r *AllocationResult) Allocated() []QuoteAllocation {
	var out []QuoteAllocation
	for _, a := range r.Allocations {
		if a.FractionAllocated > 0 {
			out = append(out, a)
		}
	}
	return out
}

// CarrierCapacity sums signed capacity per carrier.
func (r *AllocationResult) CarrierCapacity() map[string]float64 {
	out := map[string]float64{}
	for _, a := range r.Allocations {
		if a.SignedCapacity > 0 {
			out[a.Carrier] += a.SignedCapacity
		}
	}
	return out
}

// Metrics summarize a max-coverage-under-ceiling solve.
type Metrics struct {
	Threshold                float64  `json:"threshold"`
	AchievedPremium          float64  `json:"achieved_premium"`
	AchievedAverageCoverage  float64  `json:"achieved_average_coverage"`
	AchievedCoverage         float64  `json:"achieved_coverage"`
	BangForBuck              float64  `json:"bang_for_buck"`
	RequiredCarriersIncluded []string `json:"required_carriers_included,omitempty"`
}
