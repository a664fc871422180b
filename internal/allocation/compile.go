package allocation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"placement-optimizer/internal/feasibility"
	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"
)

// ZeroTolerance is the fraction below which a solver value counts as exactly 0.
const ZeroTolerance = 1e-6

// Compile turns solved variable values into business-level allocation records.
func Compile(cat *model.Catalog, built *Built, sol *solver.Solution, rep *feasibility.Report, req model.AllocationRequest) *model.AllocationResult {
	res := &model.AllocationResult{
		ID:             uuid.New(),
		Status:         mapStatus(sol.Status),
		ObjectiveValue: sol.Objective,
		Allocations:    make([]model.QuoteAllocation, cat.Len()),
	}

	layerIdx := map[string]int{}
	for _, l := range cat.Layers() {
		layerIdx[l.Name] = len(res.Layers)
		res.Layers = append(res.Layers, model.LayerSummary{Layer: l.Name, RequiredCapacity: l.RequiredCapacity})
	}

	carrierCap := map[string]float64{}
	layerCarriers := make([]map[string]bool, len(res.Layers))
	for i := range layerCarriers {
		layerCarriers[i] = map[string]bool{}
	}
	var unrounded float64
	for i := 0; i < cat.Len(); i++ {
		q := cat.Quote(i)
		raw := sol.Value(built.X[i])
		unrounded += q.Premium * raw
		x := raw
		if math.Abs(x) < ZeroTolerance {
			x = 0
		}
		x = math.Min(math.Max(x, 0), 1)

		a := model.QuoteAllocation{
			Quote:             q,
			FractionAllocated: x,
			SignedCapacity:    q.Capacity * x,
			SignedPremium:     q.Premium * x,
		}
		li := layerIdx[q.Layer]
		ls := &res.Layers[li]
		if ls.RequiredCapacity > 0 {
			a.AllocationPercentage = a.SignedCapacity / ls.RequiredCapacity * 100
		}
		res.Allocations[i] = a

		if x > 0 {
			ls.SignedCapacity += a.SignedCapacity
			ls.SignedPremium += a.SignedPremium
			ls.AverageCoverage += q.CoverageScore * a.SignedCapacity
			layerCarriers[li][q.Carrier] = true
			carrierCap[q.Carrier] += a.SignedCapacity

			res.Summary.TotalCapacity += a.SignedCapacity
			res.Summary.TotalCoverage += q.CoverageScore * a.SignedCapacity
			res.Summary.TotalPremium += a.SignedPremium
		}
	}
	for i := range res.Layers {
		if res.Layers[i].SignedCapacity > 0 {
			res.Layers[i].AverageCoverage /= res.Layers[i].SignedCapacity
		}
		res.Layers[i].ActiveCarriers = len(layerCarriers[i])
	}

	s := &res.Summary
	s.UnroundedPremium = unrounded
	s.TotalPremium = decimal.NewFromFloat(s.TotalPremium).Round(2).InexactFloat64()
	if s.TotalCapacity > 0 {
		s.AverageCoverage = s.TotalCoverage / s.TotalCapacity
	}
	s.CarriersUsed = len(carrierCap)
	if len(carrierCap) > 0 {
		caps := make(stats.Float64Data, 0, len(carrierCap))
		for _, c := range carrierCap {
			caps = append(caps, c)
		}
		mx, _ := stats.Max(caps)
		mn, _ := stats.Min(caps)
		if mn > 0 {
			s.DiversityRatio = mx / mn
		}
		s.CapacityStdDev, _ = stats.StandardDeviationPopulation(caps)
	}

	res.Slack = slackReport(built, sol)
	res.RequiredCarriers = requiredStatus(cat, req, built, res)
	res.Diagnostics = notes(cat, res, rep)
	res.Message = string(res.Status)
	if len(res.Diagnostics) > 0 {
		res.Message += ". " + strings.Join(res.Diagnostics, " ")
	}
	return res
}

func mapStatus(s solver.Status) model.Status {
	switch s {
	case solver.Optimal:
		return model.StatusOptimal
	case solver.Feasible:
		return model.StatusFeasible
	case solver.Infeasible:
		return model.StatusInfeasible
	case solver.Unbounded:
		return model.StatusUnbounded
	case solver.NotSolved:
		return model.StatusNotSolved
	default:
		return model.StatusError
	}
}

func slackReport(built *Built, sol *solver.Solution) model.SlackReport {
	var r model.SlackReport
	if built.PremiumSlack >= 0 {
		if v := sol.Value(built.PremiumSlack); v > ZeroTolerance {
			r.Premium = v
		}
	}
	for layer, id := range built.CoverageSlacks {
		if v := sol.Value(id); v > ZeroTolerance {
			if r.Coverage == nil {
				r.Coverage = map[string]float64{}
			}
			r.Coverage[layer] = v
		}
	}
	for key, id := range built.DiversificationSlacks {
		if v := sol.Value(id); v > ZeroTolerance {
			if r.Diversification == nil {
				r.Diversification = map[string]float64{}
			}
			r.Diversification[key] = v
		}
	}
	return r
}

func requiredStatus(cat *model.Catalog, req model.AllocationRequest, built *Built, res *model.AllocationResult) []model.RequiredCarrierStatus {
	var out []model.RequiredCarrierStatus
	for _, carrier := range req.RequiredCarriers {
		st := model.RequiredCarrierStatus{
			Carrier:        carrier,
			FeasibleLayers: built.RequiredLayers[carrier],
		}
		included := map[string]bool{}
		for _, i := range cat.QuotesForCarrier(carrier) {
			a := res.Allocations[i]
			if a.SignedCapacity > 0 {
				included[a.Layer] = true
				st.SignedCapacity += a.SignedCapacity
			}
		}
		for _, l := range cat.Layers() {
			if included[l.Name] {
				st.IncludedLayers = append(st.IncludedLayers, l.Name)
			}
		}
		out = append(out, st)
	}
	return out
}

func notes(cat *model.Catalog, res *model.AllocationResult, rep *feasibility.Report) []string {
	var out []string
	if res.Status == model.StatusFeasible {
		out = append(out, "Note: the search stopped at a limit; the allocation is feasible but may not be optimal.")
	}
	total := len(cat.Layers())
	for _, st := range res.RequiredCarriers {
		if len(st.IncludedLayers) < total {
			out = append(out, fmt.Sprintf("Note: required carrier %s included in %d of %d layers.",
				st.Carrier, len(st.IncludedLayers), total))
		}
	}
	if rep != nil {
		for _, c := range rep.WarningCarriers() {
			out = append(out, rep.Warnings[c].Message+".")
		}
	}
	if res.Slack.Premium > 0 {
		out = append(out, fmt.Sprintf("Note: premium target exceeded by %.2f.", res.Slack.Premium))
	}
	for _, layer := range sortedKeys(res.Slack.Coverage) {
		out = append(out, fmt.Sprintf("Note: coverage target in %s missed by %.4f.", layer, res.Slack.Coverage[layer]))
	}
	for _, key := range sortedKeys(res.Slack.Diversification) {
		bound, pair, _ := strings.Cut(key, ":")
		carrier, layer, _ := strings.Cut(pair, "|")
		out = append(out, fmt.Sprintf("Note: %s capacity limit for %s in %s relaxed by %.4f.",
			bound, carrier, layer, res.Slack.Diversification[key]))
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MetricsFor summarizes a result for the frontier. Premium is taken from the
// unrounded solver values so a point's premium can be compared to the
// threshold it was solved against.
func MetricsFor(res *model.AllocationResult, threshold float64) *model.Metrics {
	m := &model.Metrics{
		Threshold:               threshold,
		AchievedPremium:         res.Summary.UnroundedPremium,
		AchievedCoverage:        res.Summary.TotalCoverage,
		AchievedAverageCoverage: res.Summary.AverageCoverage,
	}
	if m.AchievedPremium > 0 {
		m.BangForBuck = m.AchievedCoverage / m.AchievedPremium
	}
	for _, st := range res.RequiredCarriers {
		if st.SignedCapacity > 0 {
			m.RequiredCarriersIncluded = append(m.RequiredCarriersIncluded, st.Carrier)
		}
	}
	return m
}
