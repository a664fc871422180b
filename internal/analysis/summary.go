package analysis

import (
	"github.com/montanaflynn/stats"

	"placement-optimizer/internal/model"
)

// FrontierSummary describes the spread of a frontier. It does not depend on a
// particular request; it is meant for comparing sweeps side by side.
type FrontierSummary struct {
	Count int `json:"count"`

	MinPremium float64 `json:"min_premium"`
	MaxPremium float64 `json:"max_premium"`

	MinCoverage float64 `json:"min_average_coverage"`
	MaxCoverage float64 `json:"max_average_coverage"`

	MeanBangForBuck   float64 `json:"mean_bang_for_buck"`
	MedianBangForBuck float64 `json:"median_bang_for_buck"`
	P05BangForBuck    float64 `json:"p05_bang_for_buck"`
	P95BangForBuck    float64 `json:"p95_bang_for_buck"`

	// Best is the point with the highest bang-for-buck.
	Best *model.FrontierPoint `json:"best,omitempty"`
	// NonMonotonic lists option IDs where coverage dropped as premium rose.
	NonMonotonic []int `json:"non_monotonic,omitempty"`
}

// Summarize computes spread statistics over the points of a frontier.
func Summarize(f *model.Frontier) (FrontierSummary, error) {
	s := FrontierSummary{}
	if f == nil || len(f.Points) == 0 {
		return s, nil
	}
	s.Count = len(f.Points)

	premiums := make(stats.Float64Data, 0, s.Count)
	coverage := make(stats.Float64Data, 0, s.Count)
	bang := make(stats.Float64Data, 0, s.Count)
	for _, p := range f.Points {
		premiums = append(premiums, p.Premium)
		coverage = append(coverage, p.AverageCoverage)
		bang = append(bang, p.BangForBuck)
	}

	var err error
	if s.MinPremium, err = premiums.Min(); err != nil {
		return s, err
	}
	if s.MaxPremium, err = premiums.Max(); err != nil {
		return s, err
	}
	if s.MinCoverage, err = coverage.Min(); err != nil {
		return s, err
	}
	if s.MaxCoverage, err = coverage.Max(); err != nil {
		return s, err
	}
	if s.MeanBangForBuck, err = bang.Mean(); err != nil {
		return s, err
	}
	if s.MedianBangForBuck, err = bang.Median(); err != nil {
		return s, err
	}
	if s.P05BangForBuck, err = bang.PercentileNearestRank(5); err != nil {
		return s, err
	}
	if s.P95BangForBuck, err = bang.PercentileNearestRank(95); err != nil {
		return s, err
	}

	ranked := RankByBangForBuck(f.Points)
	best := ranked[0].FrontierPoint
	s.Best = &best
	s.NonMonotonic = NonMonotonic(f.Points, 1e-6)
	return s, nil
}
