package models

import (
	"placement-optimizer/internal/analysis"
	"placement-optimizer/internal/model"
)

// MaxCoverageResponse pairs the allocation with the frontier metrics of the solve.
type MaxCoverageResponse struct {
	Result  *model.AllocationResult `json:"result"`
	Metrics *model.Metrics          `json:"metrics"`
}

// FrontierResponse is the sweep plus a spread summary and a bang-for-buck ranking.
type FrontierResponse struct {
	*model.Frontier
	Summary analysis.FrontierSummary `json:"summary"`
	Ranking []RankedOption           `json:"ranking"`
}

// RankedOption is a compact view of one frontier point in ranking order.
type RankedOption struct {
	Rank            int     `json:"rank"`
	OptionID        int     `json:"option_id"`
	Premium         float64 `json:"premium"`
	AverageCoverage float64 `json:"average_coverage"`
	BangForBuck     float64 `json:"bang_for_buck"`
}

type QuotesResponse struct {
	Quotes   []model.Quote `json:"quotes"`
	Carriers []string      `json:"carriers"`
}

type LayersResponse struct {
	Layers []LayerInfo `json:"layers"`
}

// LayerInfo describes a layer and how much capacity the market offers in it.
type LayerInfo struct {
	Name              string  `json:"name"`
	RequiredCapacity  float64 `json:"required_capacity"`
	AvailableCapacity float64 `json:"available_capacity"`
	Quotes            int     `json:"quotes"`
}

// ObjectiveMode describes one optimization variant exposed by the API.
type ObjectiveMode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Endpoint    string `json:"endpoint"`
	Description string `json:"description"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Kind    string         `json:"kind,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
