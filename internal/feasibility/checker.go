// Package feasibility rejects requests that cannot possibly be satisfied before
// any model is built, so rule violations are reported as structured diagnostics
// rather than as opaque solver infeasibility.
package feasibility

import (
	"fmt"
	"sort"
	"strings"

	"placement-optimizer/internal/model"
)

type Input struct {
	RequiredCarriers []string
	MinCredit        int
}

// LayerAvailability records where a required carrier holds credit-eligible quotes.
type LayerAvailability struct {
	Supplied []string `json:"supplied"`
	Missing  []string `json:"missing,omitempty"`
}

// CarrierWarning is advisory: the carrier will only be required where it quotes.
type CarrierWarning struct {
	Type          string   `json:"type"`
	MissingLayers []string `json:"missing_layers"`
	Message       string   `json:"message"`
}

type Report struct {
	Feasible bool                      `json:"feasible"`
	Message  string                    `json:"message"`
	Warnings map[string]CarrierWarning `json:"warnings,omitempty"`
	// CarrierLayers is keyed by required carrier.
	CarrierLayers map[string]LayerAvailability `json:"carrier_layers"`
	// EligibleCapacity is the credit-eligible capacity per layer.
	EligibleCapacity map[string]float64 `json:"eligible_capacity"`
}

// Check runs the ordered rule checks: required carriers exist, required carriers
// meet the credit floor, every layer has eligible quotes with enough capacity.
// It never calls a solver.
func Check(catalog *model.Catalog, in Input) (*Report, error) {
	for _, carrier := range in.RequiredCarriers {
		if !catalog.HasCarrier(carrier) {
			return nil, model.FeasibilityError(model.CodeNotFound,
				"required carrier '%s' not found in available quotes", carrier).
				WithDetail("carrier", carrier)
		}
	}

	for _, carrier := range in.RequiredCarriers {
		best := 0
		for _, i := range catalog.QuotesForCarrier(carrier) {
			if r := catalog.Quote(i).CreditRatingValue; r > best {
				best = r
			}
		}
		if best < in.MinCredit {
			return nil, model.FeasibilityError(model.CodeCreditRatingViolation,
				"required carrier '%s' does not meet minimum credit rating threshold", carrier).
				WithDetail("carrier", carrier).
				WithDetail("best_rating", best).
				WithDetail("min_credit", in.MinCredit)
		}
	}

	eligible := map[string]float64{}
	var empty []string
	type shortfall struct {
		layer               string
		available, required float64
	}
	var short []shortfall
	for _, l := range catalog.Layers() {
		count := 0
		for _, i := range catalog.QuotesInLayer(l.Name) {
			q := catalog.Quote(i)
			if q.CreditRatingValue >= in.MinCredit {
				eligible[l.Name] += q.Capacity
				count++
			}
		}
		if count == 0 && l.RequiredCapacity > 0 {
			empty = append(empty, l.Name)
			continue
		}
		if eligible[l.Name] < l.RequiredCapacity {
			short = append(short, shortfall{l.Name, eligible[l.Name], l.RequiredCapacity})
		}
	}
	// A layer with nothing eligible is the sharper diagnosis, so it wins over a
	// plain shortfall.
	if len(empty) > 0 {
		return nil, model.FeasibilityError(model.CodeNoEligibleQuotes,
			"no valid quotes available for layer(s) %s with credit rating threshold %d",
			quoteList(empty), in.MinCredit).
			WithDetail("layers", empty).
			WithDetail("min_credit", in.MinCredit)
	}
	if len(short) > 0 {
		s := short[0]
		layers := make([]string, len(short))
		available := map[string]float64{}
		required := map[string]float64{}
		for i, sf := range short {
			layers[i] = sf.layer
			available[sf.layer] = sf.available
			required[sf.layer] = sf.required
		}
		return nil, model.FeasibilityError(model.CodeInsufficientCapacity,
			"layer '%s' has insufficient capacity: available %g, required %g",
			s.layer, s.available, s.required).
			WithDetail("layers", layers).
			WithDetail("available", available).
			WithDetail("required", required)
	}

	rep := &Report{
		Feasible:         true,
		Message:          "Problem is feasible",
		Warnings:         map[string]CarrierWarning{},
		CarrierLayers:    map[string]LayerAvailability{},
		EligibleCapacity: eligible,
	}
	for _, carrier := range in.RequiredCarriers {
		av := LayerAvailability{}
		for _, l := range catalog.Layers() {
			ok := false
			for _, i := range catalog.PairIndices(carrier, l.Name) {
				if catalog.Quote(i).CreditRatingValue >= in.MinCredit {
					ok = true
					break
				}
			}
			if ok {
				av.Supplied = append(av.Supplied, l.Name)
			} else {
				av.Missing = append(av.Missing, l.Name)
			}
		}
		rep.CarrierLayers[carrier] = av
		if len(av.Missing) > 0 {
			rep.Warnings[carrier] = CarrierWarning{
				Type:          "missing_layers",
				MissingLayers: av.Missing,
				Message: fmt.Sprintf("Required carrier '%s' only provides quotes for layers: %s",
					carrier, strings.Join(av.Supplied, ", ")),
			}
		}
	}
	return rep, nil
}

// WarningCarriers lists carriers with warnings in a stable order.
func (r *Report) WarningCarriers() []string {
	out := make([]string, 0, len(r.Warnings))
	for c := range r.Warnings {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	return strings.Join(q, ", ")
}
