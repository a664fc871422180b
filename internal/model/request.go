package model

import "math"

// WeightMode names how PremiumWeight/CoverageWeight are interpreted.
type WeightMode string

const (
	// WeightsRaw uses the weights as given (e.g. 1-10 importance scores).
	WeightsRaw WeightMode = "raw"
	// WeightsNormalized rescales the weights so they sum to 1 before use.
	WeightsNormalized WeightMode = "normalized"
)

// Baseline is the reference used to put premium and coverage on the same scale.
type Baseline struct {
	Premium  float64 `json:"premium"`
	Coverage float64 `json:"coverage"`
}

// Targets drive the goal-programming variant: the premium target is a soft
// ceiling on total premium, MinCoverage a soft floor on each layer's
// quality-weighted capacity expressed as a fraction of its required capacity.
type Targets struct {
	MaxPremium  float64 `json:"max_premium"`
	MinCoverage float64 `json:"min_coverage"`
}

// AllocationRequest is created per call and consumed by one solve.
type AllocationRequest struct {
	PremiumWeight    float64    `json:"premium_weight"`
	CoverageWeight   float64    `json:"coverage_weight"`
	WeightMode       WeightMode `json:"weight_mode,omitempty"`
	RequiredCarriers []string   `json:"required_carriers,omitempty"`
	MinCredit        int        `json:"min_credit"`
	Diversify        bool       `json:"diversify"`

	// Capacity units per (carrier, layer) pair; nil means unlimited / no floor.
	MaxCapacityPerPair *float64 `json:"max_capacity_per_pair,omitempty"`
	MinCapacityPerPair *float64 `json:"min_capacity_per_pair,omitempty"`
	// DiversificationFactor in [0,1] penalizes concentration in the objective.
	DiversificationFactor *float64 `json:"diversification_factor,omitempty"`

	// Baseline overrides the catalog-sum normalization reference.
	Baseline *Baseline `json:"baseline,omitempty"`
}

func (r AllocationRequest) Validate() error {
	for _, w := range []float64{r.PremiumWeight, r.CoverageWeight} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return ValidationError("weights must be finite numbers")
		}
	}
	if r.PremiumWeight < 0 || r.CoverageWeight < 0 {
		return ValidationError("weights must be >= 0")
	}
	switch r.WeightMode {
	case "", WeightsRaw:
	case WeightsNormalized:
		if r.PremiumWeight+r.CoverageWeight == 0 {
			return ValidationError("normalized weights need a positive sum")
		}
	default:
		return ValidationError("unknown weight_mode %q", r.WeightMode)
	}
	if r.MinCredit < 0 {
		return ValidationError("min_credit must be >= 0")
	}
	seen := map[string]bool{}
	for _, c := range r.RequiredCarriers {
		if c == "" {
			return ValidationError("required carrier names must be non-empty")
		}
		if seen[c] {
			return ValidationError("required carrier %q listed twice", c)
		}
		seen[c] = true
	}
	if r.MaxCapacityPerPair != nil && *r.MaxCapacityPerPair <= 0 {
		return ValidationError("max_capacity_per_pair must be > 0")
	}
	if r.MinCapacityPerPair != nil && *r.MinCapacityPerPair < 0 {
		return ValidationError("min_capacity_per_pair must be >= 0")
	}
	if r.MaxCapacityPerPair != nil && r.MinCapacityPerPair != nil && *r.MinCapacityPerPair > *r.MaxCapacityPerPair {
		return ValidationError("min_capacity_per_pair must not exceed max_capacity_per_pair")
	}
	if f := r.DiversificationFactor; f != nil && (*f < 0 || *f > 1) {
		return ValidationError("diversification_factor must be in [0, 1]")
	}
	if b := r.Baseline; b != nil && (b.Premium < 0 || b.Coverage < 0) {
		return ValidationError("baseline values must be >= 0")
	}
	return nil
}

// EffectiveWeights returns the weights the objective uses under WeightMode.
func (r AllocationRequest) EffectiveWeights() (premium, coverage float64) {
	if r.WeightMode == WeightsNormalized {
		sum := r.PremiumWeight + r.CoverageWeight
		return r.PremiumWeight / sum, r.CoverageWeight / sum
	}
	return r.PremiumWeight, r.CoverageWeight
}

func (t Targets) Validate() error {
	if t.MaxPremium <= 0 {
		return ValidationError("targets.max_premium must be > 0")
	}
	if t.MinCoverage < 0 || t.MinCoverage > 1 {
		return ValidationError("targets.min_coverage must be in [0, 1]")
	}
	return nil
}

// Float is a small helper for the optional request fields.
func Float(v float64) *float64 { return &v }
